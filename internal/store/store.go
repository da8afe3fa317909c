// Package store defines the external collaborator interfaces of the
// reconciliation engine: the durable ledger store and the statement
// upload registry. The engine only ever talks to these interfaces; the
// surrounding application supplies the real implementations. A
// failure-injectable in-memory implementation ships here for tests, and
// a sqlite-backed one lives in the sqlite subpackage.
package store

import (
	"context"
	"time"

	"school-finance-reconciler/internal/models"
)

// EntryQuery selects the ledger window relevant to one reconciliation
// session: one school, one bank account, one date range. Entries not yet
// bound to any account are included, since binding happens at
// reconciliation time.
type EntryQuery struct {
	SchoolID  string
	AccountID string
	From      time.Time
	To        time.Time
}

// EntryUpdate is the field set written when a record is confirmed
// against an entry.
type EntryUpdate struct {
	Reconciled        bool
	ReconciledAt      time.Time
	SettlementDate    time.Time
	ReconciliationRef string
	AccountID         string
	Status            string
}

// LedgerStore is the durable ledger consumed by the engine.
type LedgerStore interface {
	// QueryEntries returns the entries matching the query, in the
	// store's iteration order. The matcher's tie-breaking relies on
	// that order being stable between identical queries.
	QueryEntries(ctx context.Context, query EntryQuery) ([]*models.LedgerEntry, error)

	// UpdateEntry applies the reconciliation update to one entry.
	// The update is atomic at the store level.
	UpdateEntry(ctx context.Context, id string, update EntryUpdate) error

	// CreateEntry persists a new entry and returns its assigned id.
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) (string, error)
}

// UploadKey identifies one statement upload period.
type UploadKey struct {
	AccountID string
	Month     time.Month
	Year      int
	Kind      models.AccountKind
}

// UploadFields carries the fields an upsert contributes. Zero-valued
// fields are left untouched on the stored record, so a document upload
// never erases a previously uploaded data file and vice versa.
type UploadFields struct {
	DataFileURL string
	DocumentURL string
	CoverSheet  *models.CoverSheetFigures
}

// UploadRegistry is the durable record of which files were attached to
// which (account, month, year, kind).
type UploadRegistry interface {
	// Upsert creates the period record on first upload and merges
	// subsequent uploads into it.
	Upsert(ctx context.Context, key UploadKey, fields UploadFields) error

	// Get returns the period record, or a not-found store error.
	Get(ctx context.Context, key UploadKey) (*models.StatementUploadRecord, error)
}
