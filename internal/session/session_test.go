package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/internal/store"
	"school-finance-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, kind models.AccountKind, memory *store.MemoryStore) *Session {
	t.Helper()

	sess, err := New("sch-1", "acc-1", 2024, time.January, kind, memory, memory, nil)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	sess.now = func() time.Time { return fixedNow }
	return sess
}

func seedOutgoing(m *store.MemoryStore, day int, amount float64) string {
	return m.SeedEntry(&models.LedgerEntry{
		SchoolID:    "sch-1",
		AccountID:   "acc-1",
		Date:        time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromFloat(amount),
		Flow:        models.FlowOutgoing,
		Description: "seeded outgoing",
	})
}

func importRows(t *testing.T, sess *Session, rows string) *ImportResult {
	t.Helper()
	result, err := sess.ImportFile(context.Background(), "extrato.csv", []byte(rows), "")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	return result
}

func TestSessionNewValidation(t *testing.T) {
	memory := store.NewMemoryStore()

	if _, err := New("", "acc-1", 2024, time.January, models.AccountChecking, memory, memory, nil); err == nil {
		t.Error("expected error for empty school id")
	}
	if _, err := New("sch-1", "", 2024, time.January, models.AccountChecking, memory, memory, nil); err == nil {
		t.Error("expected error for empty account id")
	}
	if _, err := New("sch-1", "acc-1", 2024, 13, models.AccountChecking, memory, memory, nil); err == nil {
		t.Error("expected error for invalid month")
	}
	if _, err := New("sch-1", "acc-1", 2024, time.January, models.AccountChecking, nil, memory, nil); err == nil {
		t.Error("expected error for nil ledger")
	}
}

func TestSessionWindow(t *testing.T) {
	sess := newTestSession(t, models.AccountChecking, store.NewMemoryStore())

	from, to := sess.Window()

	// January padded by the three day tolerance on both sides.
	if !from.Equal(time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window start = %s", from)
	}
	if !to.Equal(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window end = %s", to)
	}
}

func TestSessionImportAndRematch(t *testing.T) {
	memory := store.NewMemoryStore()
	entryID := seedOutgoing(memory, 16, 1200.50)

	sess := newTestSession(t, models.AccountChecking, memory)

	result := importRows(t, sess, "15/01/2024;PAGAMENTO FORNECEDOR X;-1200,50\n")
	if result.Added != 1 {
		t.Fatalf("added = %d, want 1", result.Added)
	}

	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	records := sess.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].State != models.StateCandidate {
		t.Errorf("state = %s, want candidate", records[0].State)
	}
	if records[0].LinkedEntryID != entryID {
		t.Errorf("linked entry = %q, want %q", records[0].LinkedEntryID, entryID)
	}
}

func TestSessionReimportKeepsMatchState(t *testing.T) {
	memory := store.NewMemoryStore()
	seedOutgoing(memory, 15, 100)

	sess := newTestSession(t, models.AccountChecking, memory)
	rows := "15/01/2024;PAGAMENTO A;-100,00\n"

	importRows(t, sess, rows)
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	result := importRows(t, sess, rows)
	if result.Added != 0 || result.Skipped != 1 {
		t.Errorf("re-import added %d skipped %d, want 0/1", result.Added, result.Skipped)
	}
	if sess.Records()[0].State != models.StateCandidate {
		t.Errorf("match state lost on re-import: %s", sess.Records()[0].State)
	}
}

func TestSessionConfirmRecord(t *testing.T) {
	memory := store.NewMemoryStore()
	entryID := seedOutgoing(memory, 15, 1200.50)

	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;PAGAMENTO FORNECEDOR X;-1200,50\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	externalID := sess.Records()[0].ExternalID
	if err := sess.ConfirmRecord(context.Background(), externalID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// The confirmed record leaves the working set.
	if len(sess.Records()) != 0 {
		t.Errorf("expected empty working set, got %d records", len(sess.Records()))
	}

	entry, ok := memory.GetEntry(entryID)
	if !ok {
		t.Fatal("entry disappeared")
	}
	if !entry.Reconciled {
		t.Error("entry not reconciled in store")
	}
	if entry.ReconciliationRef != externalID {
		t.Errorf("reconciliation ref = %q, want %q", entry.ReconciliationRef, externalID)
	}
	if entry.ReconciledAt == nil || !entry.ReconciledAt.Equal(fixedNow) {
		t.Errorf("reconciled at = %v, want %s", entry.ReconciledAt, fixedNow)
	}
	if entry.SettlementDate == nil || !entry.SettlementDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("settlement date = %v, want record date", entry.SettlementDate)
	}
	if entry.Status != models.EntryStatusReconciled {
		t.Errorf("status = %q", entry.Status)
	}
}

func TestSessionConfirmRequiresCandidate(t *testing.T) {
	memory := store.NewMemoryStore()
	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;SEM CONTRAPARTIDA;-77,00\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	err := sess.ConfirmRecord(context.Background(), sess.Records()[0].ExternalID)
	if err == nil {
		t.Fatal("expected error confirming a pending record")
	}
	engineErr, ok := errors.AsEngineError(err)
	if !ok || engineErr.Code != errors.CodeInvalidState {
		t.Errorf("expected invalid-state engine error, got %v", err)
	}

	if err := sess.ConfirmRecord(context.Background(), "missing-id"); err == nil {
		t.Error("expected error for unknown record")
	}
}

func TestSessionConfirmWrapsForeignStoreErrors(t *testing.T) {
	// Store implementations outside this repo may fail with plain
	// errors; the session still surfaces them through the taxonomy.
	memory := store.NewMemoryStore()
	entryID := seedOutgoing(memory, 15, 100)
	memory.FailUpdates[entryID] = fmt.Errorf("connection reset")

	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;PAGAMENTO A;-100,00\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	err := sess.ConfirmRecord(context.Background(), sess.Records()[0].ExternalID)
	if err == nil {
		t.Fatal("expected confirm to fail")
	}

	engineErr, ok := errors.AsEngineError(err)
	if !ok {
		t.Fatalf("expected an engine error, got %T", err)
	}
	if engineErr.Category != errors.CategoryStore {
		t.Errorf("category = %s, want store", engineErr.Category)
	}
	if engineErr.Unwrap() == nil {
		t.Error("wrapped error must keep its cause")
	}
}

func TestSessionConfirmAllPartialFailure(t *testing.T) {
	memory := store.NewMemoryStore()
	seedOutgoing(memory, 15, 100)
	failingID := seedOutgoing(memory, 16, 200)
	seedOutgoing(memory, 17, 300)

	memory.FailUpdates[failingID] = errors.StoreError(errors.CodeMutationFailed, "update_entry", nil)

	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess,
		"15/01/2024;PAGAMENTO A;-100,00\n"+
			"16/01/2024;PAGAMENTO B;-200,00\n"+
			"17/01/2024;PAGAMENTO C;-300,00\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	confirmed, err := sess.ConfirmAll(context.Background())

	if confirmed != 2 {
		t.Errorf("confirmed = %d, want 2", confirmed)
	}
	if err == nil {
		t.Fatal("expected aggregate error")
	}
	engineErr, ok := errors.AsEngineError(err)
	if !ok || engineErr.Code != errors.CodePartialFailure {
		t.Errorf("expected partial-failure engine error, got %v", err)
	}

	// The failed record stays in the working set, still a candidate.
	records := sess.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 remaining record, got %d", len(records))
	}
	if records[0].LinkedEntryID != failingID {
		t.Errorf("remaining record linked to %q, want %q", records[0].LinkedEntryID, failingID)
	}

	// After the store recovers, the leftover confirms cleanly.
	delete(memory.FailUpdates, failingID)
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}
	if _, err := sess.ConfirmAll(context.Background()); err != nil {
		t.Errorf("retry confirm failed: %v", err)
	}
	if len(sess.Records()) != 0 {
		t.Errorf("expected empty working set after retry")
	}
}

func TestSessionConfirmAllNoCandidates(t *testing.T) {
	sess := newTestSession(t, models.AccountChecking, store.NewMemoryStore())

	confirmed, err := sess.ConfirmAll(context.Background())
	if confirmed != 0 || err != nil {
		t.Errorf("empty confirm-all: got %d, %v", confirmed, err)
	}
}

func TestSessionManualMatch(t *testing.T) {
	memory := store.NewMemoryStore()
	// Different amount, so the heuristic tier leaves the record pending.
	entryID := seedOutgoing(memory, 15, 1150.00)

	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;PAGAMENTO PARCIAL;-1200,50\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	record := sess.Records()[0]
	if record.State != models.StatePending {
		t.Fatalf("precondition failed: record is %s", record.State)
	}

	if err := sess.ManualMatch(context.Background(), record.ExternalID, entryID); err != nil {
		t.Fatalf("manual match failed: %v", err)
	}

	entry, _ := memory.GetEntry(entryID)
	if !entry.Reconciled || entry.ReconciliationRef != record.ExternalID {
		t.Errorf("entry not reconciled by manual match: %+v", entry)
	}
	if len(sess.Records()) != 0 {
		t.Error("record must leave the working set after manual match")
	}
}

func TestSessionManualMatchRejectsReconciledEntry(t *testing.T) {
	memory := store.NewMemoryStore()
	entryID := seedOutgoing(memory, 15, 500)

	memory.UpdateEntry(context.Background(), entryID, store.EntryUpdate{
		Reconciled:        true,
		ReconciledAt:      fixedNow,
		SettlementDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		ReconciliationRef: "OTHER-REF",
		AccountID:         "acc-1",
		Status:            models.EntryStatusReconciled,
	})

	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;PAGAMENTO X;-123,00\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	err := sess.ManualMatch(context.Background(), sess.Records()[0].ExternalID, entryID)
	if err == nil {
		t.Fatal("expected error matching against a reconciled entry")
	}
	engineErr, ok := errors.AsEngineError(err)
	if !ok || engineErr.Code != errors.CodeAlreadyReconciled {
		t.Errorf("expected already-reconciled engine error, got %v", err)
	}
}

func TestSessionManualCandidates(t *testing.T) {
	memory := store.NewMemoryStore()
	seedOutgoing(memory, 10, 500)
	exactID := seedOutgoing(memory, 12, 1200.50)

	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;PAGAMENTO;-1200,50\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	// The exact entry was auto-claimed as a candidate, but manual
	// candidates still rank everything unreconciled.
	candidates, err := sess.ManualCandidates(sess.Records()[0].ExternalID)
	if err != nil {
		t.Fatalf("manual candidates failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ID != exactID {
		t.Errorf("closest amount must rank first, got %s", candidates[0].ID)
	}
}

func TestSessionQuickCreate(t *testing.T) {
	memory := store.NewMemoryStore()
	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;TARIFA PACOTE;-45,90\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	record := sess.Records()[0]
	entryID, err := sess.QuickCreate(context.Background(), record.ExternalID, QuickCreateInput{
		Category: "BANK_FEE",
		RubricID: "rub-1",
	})
	if err != nil {
		t.Fatalf("quick create failed: %v", err)
	}

	entry, ok := memory.GetEntry(entryID)
	if !ok {
		t.Fatal("created entry not found")
	}
	// Born reconciled, carrying the record's external id as reference.
	if !entry.Reconciled {
		t.Error("quick-created entry must be born reconciled")
	}
	if entry.ReconciliationRef != record.ExternalID {
		t.Errorf("ref = %q, want %q", entry.ReconciliationRef, record.ExternalID)
	}
	if entry.Flow != models.FlowOutgoing {
		t.Errorf("flow = %s, want OUTGOING for a debit record", entry.Flow)
	}
	if !entry.Amount.Equal(decimal.NewFromFloat(45.90)) {
		t.Errorf("amount = %s, want 45.90", entry.Amount)
	}
	if entry.Description != "TARIFA PACOTE" {
		t.Errorf("description = %q, want record description fallback", entry.Description)
	}
	if entry.SettlementDate == nil || !entry.SettlementDate.Equal(record.Date) {
		t.Errorf("settlement date = %v, want record date", entry.SettlementDate)
	}

	if len(sess.Records()) != 0 {
		t.Error("record must leave the working set after quick create")
	}
}

func TestSessionSuggestFor(t *testing.T) {
	sess := newTestSession(t, models.AccountChecking, store.NewMemoryStore())
	importRows(t, sess, "15/01/2024;TARIFA PACOTE;-45,90\n")

	suggestion, ok := sess.SuggestFor(sess.Records()[0].ExternalID)
	if !ok {
		t.Fatal("expected a suggestion for a fee description")
	}
	if suggestion.Category != "BANK_FEE" {
		t.Errorf("category = %s, want BANK_FEE", suggestion.Category)
	}

	if _, ok := sess.SuggestFor("missing"); ok {
		t.Error("expected no suggestion for unknown record")
	}
}

func TestSessionClear(t *testing.T) {
	memory := store.NewMemoryStore()
	seedOutgoing(memory, 15, 100)

	sess := newTestSession(t, models.AccountChecking, memory)
	importRows(t, sess, "15/01/2024;PAGAMENTO;-100,00\n")
	if err := sess.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch failed: %v", err)
	}

	sess.Clear()

	if len(sess.Records()) != 0 || len(sess.Entries()) != 0 {
		t.Error("clear must drop records and the cached window")
	}
	if _, ok := memory.GetEntry("anything"); ok {
		t.Error("clear must not touch the store")
	}
}
