package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"school-finance-reconciler/internal/matcher"
	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/internal/store"
	"school-finance-reconciler/pkg/errors"
	"school-finance-reconciler/pkg/logger"
)

// QuickCreateInput carries the ledger coordinates for an entry created
// straight from a statement record.
type QuickCreateInput struct {
	Description string
	Category    string
	ProgramID   string
	RubricID    string
	SupplierID  string
}

// ConfirmRecord confirms a candidate record against its linked entry.
// On success the entry is reconciled in the store and the record leaves
// the working set.
func (s *Session) ConfirmRecord(ctx context.Context, externalID string) error {
	record := s.findRecord(externalID)
	if record == nil {
		return errors.ReconciliationError(errors.CodeRecordNotFound, "confirm", nil).
			WithContext("external_id", externalID)
	}
	if record.State != models.StateCandidate || record.LinkedEntryID == "" {
		return errors.ReconciliationError(errors.CodeInvalidState, "confirm", nil).
			WithContext("external_id", externalID).
			WithContext("state", string(record.State))
	}

	if err := s.ledger.UpdateEntry(ctx, record.LinkedEntryID, s.confirmUpdate(record)); err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeMutationFailed,
			"entry update failed during confirm")
	}

	s.markEntryReconciled(record.LinkedEntryID, record)
	s.removeRecord(externalID)

	s.logger.WithFields(logger.Fields{
		"external_id": externalID,
		"entry_id":    record.LinkedEntryID,
	}).Info("Record confirmed")

	return nil
}

// ConfirmAll confirms every candidate record concurrently. Records whose
// store update fails stay in the working set; the others leave it. The
// returned count is the number confirmed, and the error, if any,
// aggregates the individual failures.
func (s *Session) ConfirmAll(ctx context.Context) (int, error) {
	var candidates []*models.BankTransactionRecord
	for _, record := range s.records {
		if record.State == models.StateCandidate && record.LinkedEntryID != "" {
			candidates = append(candidates, record)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []*models.BankTransactionRecord
		failures  []string
	)

	for _, record := range candidates {
		wg.Add(1)
		go func(record *models.BankTransactionRecord) {
			defer wg.Done()

			err := s.ledger.UpdateEntry(ctx, record.LinkedEntryID, s.confirmUpdate(record))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", record.ExternalID, err))
				return
			}
			succeeded = append(succeeded, record)
		}(record)
	}
	wg.Wait()

	for _, record := range succeeded {
		s.markEntryReconciled(record.LinkedEntryID, record)
		s.removeRecord(record.ExternalID)
	}

	s.logger.WithFields(logger.Fields{
		"confirmed": len(succeeded),
		"failed":    len(failures),
	}).Info("Bulk confirmation finished")

	if len(failures) > 0 {
		err := errors.ReconciliationError(errors.CodePartialFailure, "confirm_all",
			fmt.Errorf("%s", strings.Join(failures, "; "))).
			WithContext("confirmed", len(succeeded)).
			WithContext("failed", len(failures))
		return len(succeeded), err
	}

	return len(succeeded), nil
}

// ManualMatch confirms a record against an operator-chosen entry,
// bypassing the automatic matcher. The entry must be unreconciled and
// free of any reconciliation reference.
func (s *Session) ManualMatch(ctx context.Context, externalID, entryID string) error {
	record := s.findRecord(externalID)
	if record == nil {
		return errors.ReconciliationError(errors.CodeRecordNotFound, "manual_match", nil).
			WithContext("external_id", externalID)
	}
	if record.State == models.StateReconciled || record.State == models.StateMaterialized {
		return errors.ReconciliationError(errors.CodeInvalidState, "manual_match", nil).
			WithContext("external_id", externalID).
			WithContext("state", string(record.State))
	}

	entry := s.findEntry(entryID)
	if entry == nil {
		return errors.ReconciliationError(errors.CodeRecordNotFound, "manual_match", nil).
			WithContext("entry_id", entryID)
	}
	if entry.Reconciled || entry.ReconciliationRef != "" {
		return errors.ReconciliationError(errors.CodeAlreadyReconciled, "manual_match", nil).
			WithContext("entry_id", entryID)
	}

	record.LinkedEntryID = entryID
	if err := s.ledger.UpdateEntry(ctx, entryID, s.confirmUpdate(record)); err != nil {
		record.LinkedEntryID = ""
		return errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeMutationFailed,
			"entry update failed during manual match")
	}

	s.markEntryReconciled(entryID, record)
	s.removeRecord(externalID)

	s.logger.WithFields(logger.Fields{
		"external_id": externalID,
		"entry_id":    entryID,
	}).Info("Record manually matched")

	return nil
}

// ManualCandidates ranks the loaded ledger window as manual-match
// candidates for one record, closest amount first.
func (s *Session) ManualCandidates(externalID string) ([]*models.LedgerEntry, error) {
	record := s.findRecord(externalID)
	if record == nil {
		return nil, errors.ReconciliationError(errors.CodeRecordNotFound, "manual_candidates", nil).
			WithContext("external_id", externalID)
	}
	return matcher.RankManualCandidates(record, s.entries), nil
}

// QuickCreate materializes a brand-new ledger entry from a record that
// matched nothing. The entry is born reconciled, carrying the record's
// external id as its reconciliation reference, and the record leaves
// the working set.
func (s *Session) QuickCreate(ctx context.Context, externalID string, input QuickCreateInput) (string, error) {
	record := s.findRecord(externalID)
	if record == nil {
		return "", errors.ReconciliationError(errors.CodeRecordNotFound, "quick_create", nil).
			WithContext("external_id", externalID)
	}
	if record.State == models.StateReconciled || record.State == models.StateMaterialized {
		return "", errors.ReconciliationError(errors.CodeInvalidState, "quick_create", nil).
			WithContext("external_id", externalID).
			WithContext("state", string(record.State))
	}

	description := input.Description
	if description == "" {
		description = record.Description
	}

	now := s.now()
	settlement := record.Date

	entry := &models.LedgerEntry{
		SchoolID:          s.schoolID,
		AccountID:         s.accountID,
		Date:              record.Date,
		SettlementDate:    &settlement,
		Amount:            record.Amount,
		Flow:              record.Direction.Flow(),
		Category:          input.Category,
		ProgramID:         input.ProgramID,
		RubricID:          input.RubricID,
		SupplierID:        input.SupplierID,
		Description:       description,
		Reconciled:        true,
		ReconciledAt:      &now,
		ReconciliationRef: record.ExternalID,
		Status:            models.EntryStatusReconciled,
	}

	id, err := s.ledger.CreateEntry(ctx, entry)
	if err != nil {
		return "", errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeMutationFailed,
			"entry creation failed during quick create")
	}

	record.State = models.StateMaterialized
	record.LinkedEntryID = id
	s.removeRecord(externalID)

	s.logger.WithFields(logger.Fields{
		"external_id": externalID,
		"entry_id":    id,
	}).Info("Entry created from record")

	return id, nil
}

func (s *Session) confirmUpdate(record *models.BankTransactionRecord) store.EntryUpdate {
	return store.EntryUpdate{
		Reconciled:        true,
		ReconciledAt:      s.now(),
		SettlementDate:    record.Date,
		ReconciliationRef: record.ExternalID,
		AccountID:         s.accountID,
		Status:            models.EntryStatusReconciled,
	}
}

// markEntryReconciled mirrors a confirmed update onto the cached ledger
// window so a Rematch is not needed to see the new state.
func (s *Session) markEntryReconciled(entryID string, record *models.BankTransactionRecord) {
	entry := s.findEntry(entryID)
	if entry == nil {
		return
	}
	now := s.now()
	settlement := record.Date

	entry.Reconciled = true
	entry.ReconciledAt = &now
	entry.SettlementDate = &settlement
	entry.ReconciliationRef = record.ExternalID
	entry.AccountID = s.accountID
	entry.Status = models.EntryStatusReconciled

	record.State = models.StateReconciled
}
