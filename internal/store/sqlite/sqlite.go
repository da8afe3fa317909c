// Package sqlite provides a sqlite-backed implementation of the ledger
// store and upload registry interfaces, used by the CLI and suitable as
// a reference for real deployments.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/internal/store"
	"school-finance-reconciler/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ledgerEntry is the persisted shape of a ledger entry. Amounts are
// stored as strings to preserve decimal exactness through sqlite.
type ledgerEntry struct {
	ID                string `gorm:"primaryKey"`
	SchoolID          string `gorm:"index"`
	AccountID         string `gorm:"index"`
	Date              time.Time
	SettlementDate    *time.Time
	Amount            string
	Flow              string
	Category          string
	ProgramID         string
	RubricID          string
	SupplierID        string
	Description       string
	Reconciled        bool
	ReconciledAt      *time.Time
	ReconciliationRef string `gorm:"index"`
	Status            string
	DocumentURL       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// statementUpload is the persisted shape of an upload registry record.
// One row per (account, month, year, kind) period.
type statementUpload struct {
	ID               uint   `gorm:"primaryKey"`
	AccountID        string `gorm:"uniqueIndex:idx_upload_period"`
	Month            int    `gorm:"uniqueIndex:idx_upload_period"`
	Year             int    `gorm:"uniqueIndex:idx_upload_period"`
	Kind             string `gorm:"uniqueIndex:idx_upload_period"`
	DataFileURL      string
	DocumentURL      string
	GrossYield       *string
	WithheldTax      *string
	ResultingBalance *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Store implements store.LedgerStore and store.UploadRegistry over a
// sqlite database.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at the given path and migrates
// the schema.
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&ledgerEntry{}, &statementUpload{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// QueryEntries implements store.LedgerStore. Ordering by creation date
// keeps iteration order stable between identical queries.
func (s *Store) QueryEntries(ctx context.Context, query store.EntryQuery) ([]*models.LedgerEntry, error) {
	var rows []ledgerEntry

	err := s.db.WithContext(ctx).
		Where("school_id = ?", query.SchoolID).
		Where("account_id = ? OR account_id = ?", query.AccountID, "").
		Where("COALESCE(settlement_date, date) BETWEEN ? AND ?", query.From, query.To).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "query_entries", err)
	}

	entries := make([]*models.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := rowToEntry(row)
		if err != nil {
			return nil, errors.StoreError(errors.CodeQueryFailed, "query_entries", err).
				WithContext("entry_id", row.ID)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// UpdateEntry implements store.LedgerStore.
func (s *Store) UpdateEntry(ctx context.Context, id string, update store.EntryUpdate) error {
	result := s.db.WithContext(ctx).Model(&ledgerEntry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"reconciled":         update.Reconciled,
		"reconciled_at":      update.ReconciledAt,
		"settlement_date":    update.SettlementDate,
		"reconciliation_ref": update.ReconciliationRef,
		"account_id":         update.AccountID,
		"status":             update.Status,
	})
	if result.Error != nil {
		return errors.StoreError(errors.CodeMutationFailed, "update_entry", result.Error).
			WithContext("entry_id", id)
	}
	if result.RowsAffected == 0 {
		return errors.StoreError(errors.CodeNotFound, "update_entry", nil).WithContext("entry_id", id)
	}
	return nil
}

// CreateEntry implements store.LedgerStore.
func (s *Store) CreateEntry(ctx context.Context, entry *models.LedgerEntry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", errors.StoreError(errors.CodeMutationFailed, "create_entry", err)
	}

	row := entryToRow(entry)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", errors.StoreError(errors.CodeMutationFailed, "create_entry", err)
	}

	return row.ID, nil
}

// Upsert implements store.UploadRegistry with merge semantics: fields
// absent from this upload keep their previously stored values.
func (s *Store) Upsert(ctx context.Context, key store.UploadKey, fields store.UploadFields) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row statementUpload
		err := tx.Where("account_id = ? AND month = ? AND year = ? AND kind = ?",
			key.AccountID, int(key.Month), key.Year, string(key.Kind)).First(&row).Error

		switch {
		case err == gorm.ErrRecordNotFound:
			row = statementUpload{
				AccountID: key.AccountID,
				Month:     int(key.Month),
				Year:      key.Year,
				Kind:      string(key.Kind),
			}
		case err != nil:
			return errors.StoreError(errors.CodeQueryFailed, "upsert_upload", err)
		}

		if fields.DataFileURL != "" {
			row.DataFileURL = fields.DataFileURL
		}
		if fields.DocumentURL != "" {
			row.DocumentURL = fields.DocumentURL
		}
		if fields.CoverSheet != nil {
			gross := fields.CoverSheet.GrossYield.String()
			tax := fields.CoverSheet.WithheldTax.String()
			balance := fields.CoverSheet.ResultingBalance.String()
			row.GrossYield = &gross
			row.WithheldTax = &tax
			row.ResultingBalance = &balance
		}

		if err := tx.Save(&row).Error; err != nil {
			return errors.StoreError(errors.CodeMutationFailed, "upsert_upload", err)
		}
		return nil
	})
}

// Get implements store.UploadRegistry.
func (s *Store) Get(ctx context.Context, key store.UploadKey) (*models.StatementUploadRecord, error) {
	var row statementUpload
	err := s.db.WithContext(ctx).Where("account_id = ? AND month = ? AND year = ? AND kind = ?",
		key.AccountID, int(key.Month), key.Year, string(key.Kind)).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.StoreError(errors.CodeNotFound, "get_upload", nil).
			WithContext("account_id", key.AccountID)
	}
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "get_upload", err)
	}

	record := &models.StatementUploadRecord{
		AccountID:   row.AccountID,
		Month:       time.Month(row.Month),
		Year:        row.Year,
		Kind:        models.AccountKind(row.Kind),
		DataFileURL: row.DataFileURL,
		DocumentURL: row.DocumentURL,
	}

	if row.GrossYield != nil && row.WithheldTax != nil && row.ResultingBalance != nil {
		sheet, err := coverSheetFromRow(row)
		if err != nil {
			return nil, errors.StoreError(errors.CodeQueryFailed, "get_upload", err)
		}
		record.CoverSheet = sheet
	}

	return record, nil
}

func coverSheetFromRow(row statementUpload) (*models.CoverSheetFigures, error) {
	gross, err := decimal.NewFromString(*row.GrossYield)
	if err != nil {
		return nil, fmt.Errorf("stored gross yield is not decimal: %w", err)
	}
	tax, err := decimal.NewFromString(*row.WithheldTax)
	if err != nil {
		return nil, fmt.Errorf("stored withheld tax is not decimal: %w", err)
	}
	balance, err := decimal.NewFromString(*row.ResultingBalance)
	if err != nil {
		return nil, fmt.Errorf("stored resulting balance is not decimal: %w", err)
	}

	return &models.CoverSheetFigures{
		GrossYield:       gross,
		WithheldTax:      tax,
		ResultingBalance: balance,
	}, nil
}

func rowToEntry(row ledgerEntry) (*models.LedgerEntry, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount is not decimal: %w", err)
	}

	return &models.LedgerEntry{
		ID:                row.ID,
		SchoolID:          row.SchoolID,
		AccountID:         row.AccountID,
		Date:              row.Date,
		SettlementDate:    row.SettlementDate,
		Amount:            amount,
		Flow:              models.Flow(row.Flow),
		Category:          row.Category,
		ProgramID:         row.ProgramID,
		RubricID:          row.RubricID,
		SupplierID:        row.SupplierID,
		Description:       row.Description,
		Reconciled:        row.Reconciled,
		ReconciledAt:      row.ReconciledAt,
		ReconciliationRef: row.ReconciliationRef,
		Status:            row.Status,
		DocumentURL:       row.DocumentURL,
	}, nil
}

func entryToRow(entry *models.LedgerEntry) ledgerEntry {
	return ledgerEntry{
		ID:                entry.ID,
		SchoolID:          entry.SchoolID,
		AccountID:         entry.AccountID,
		Date:              entry.Date,
		SettlementDate:    entry.SettlementDate,
		Amount:            entry.Amount.String(),
		Flow:              string(entry.Flow),
		Category:          entry.Category,
		ProgramID:         entry.ProgramID,
		RubricID:          entry.RubricID,
		SupplierID:        entry.SupplierID,
		Description:       entry.Description,
		Reconciled:        entry.Reconciled,
		ReconciledAt:      entry.ReconciledAt,
		ReconciliationRef: entry.ReconciliationRef,
		Status:            entry.Status,
		DocumentURL:       entry.DocumentURL,
	}
}
