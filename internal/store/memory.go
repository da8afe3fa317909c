package store

import (
	"context"
	"sync"

	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/pkg/errors"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory LedgerStore and UploadRegistry. It powers
// the engine's tests and small CLI experiments. Update failures can be
// injected per entry id to exercise partial-failure paths.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*models.LedgerEntry
	uploads map[UploadKey]*models.StatementUploadRecord

	// FailUpdates maps entry ids to errors returned by UpdateEntry.
	FailUpdates map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads:     make(map[UploadKey]*models.StatementUploadRecord),
		FailUpdates: make(map[string]error),
	}
}

// SeedEntry inserts an entry directly, assigning an id when the entry
// has none. Intended for test setup.
func (m *MemoryStore) SeedEntry(entry *models.LedgerEntry) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.entries = append(m.entries, entry)
	return entry.ID
}

// QueryEntries implements LedgerStore. Iteration order is insertion
// order, which is stable between identical queries.
func (m *MemoryStore) QueryEntries(_ context.Context, query EntryQuery) ([]*models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.LedgerEntry
	for _, entry := range m.entries {
		if entry.SchoolID != query.SchoolID {
			continue
		}
		if entry.AccountID != "" && entry.AccountID != query.AccountID {
			continue
		}
		date := entry.EffectiveDate()
		if date.Before(query.From) || date.After(query.To) {
			continue
		}
		clone := *entry
		result = append(result, &clone)
	}

	return result, nil
}

// UpdateEntry implements LedgerStore.
func (m *MemoryStore) UpdateEntry(_ context.Context, id string, update EntryUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailUpdates[id]; ok {
		return err
	}

	for _, entry := range m.entries {
		if entry.ID != id {
			continue
		}

		entry.Reconciled = update.Reconciled
		reconciledAt := update.ReconciledAt
		entry.ReconciledAt = &reconciledAt
		settlement := update.SettlementDate
		entry.SettlementDate = &settlement
		entry.ReconciliationRef = update.ReconciliationRef
		entry.AccountID = update.AccountID
		entry.Status = update.Status
		return nil
	}

	return errors.StoreError(errors.CodeNotFound, "update_entry", nil).WithContext("entry_id", id)
}

// CreateEntry implements LedgerStore.
func (m *MemoryStore) CreateEntry(_ context.Context, entry *models.LedgerEntry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", errors.StoreError(errors.CodeMutationFailed, "create_entry", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *entry
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	m.entries = append(m.entries, &clone)
	return clone.ID, nil
}

// GetEntry returns a copy of one entry by id. Intended for test
// assertions.
func (m *MemoryStore) GetEntry(id string) (*models.LedgerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.entries {
		if entry.ID == id {
			clone := *entry
			return &clone, true
		}
	}
	return nil, false
}

// Upsert implements UploadRegistry with merge semantics.
func (m *MemoryStore) Upsert(_ context.Context, key UploadKey, fields UploadFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.uploads[key]
	if !ok {
		record = &models.StatementUploadRecord{
			AccountID: key.AccountID,
			Month:     key.Month,
			Year:      key.Year,
			Kind:      key.Kind,
		}
		m.uploads[key] = record
	}

	if fields.DataFileURL != "" {
		record.DataFileURL = fields.DataFileURL
	}
	if fields.DocumentURL != "" {
		record.DocumentURL = fields.DocumentURL
	}
	if fields.CoverSheet != nil {
		sheet := *fields.CoverSheet
		record.CoverSheet = &sheet
	}

	return nil
}

// Get implements UploadRegistry.
func (m *MemoryStore) Get(_ context.Context, key UploadKey) (*models.StatementUploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.uploads[key]
	if !ok {
		return nil, errors.StoreError(errors.CodeNotFound, "get_upload", nil).
			WithContext("account_id", key.AccountID)
	}

	clone := *record
	if record.CoverSheet != nil {
		sheet := *record.CoverSheet
		clone.CoverSheet = &sheet
	}
	return &clone, nil
}
