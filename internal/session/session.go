// Package session implements the monthly reconciliation session: the
// in-memory working set of bank statement records for one school,
// account and month, together with the operations that move records
// through their lifecycle against the ledger store.
package session

import (
	"context"
	"fmt"
	"time"

	"school-finance-reconciler/internal/dedup"
	"school-finance-reconciler/internal/matcher"
	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/internal/parsers"
	"school-finance-reconciler/internal/rules"
	"school-finance-reconciler/internal/store"
	"school-finance-reconciler/pkg/errors"
	"school-finance-reconciler/pkg/logger"
)

// Config holds the tunables of a reconciliation session.
type Config struct {
	Parser   *parsers.ParserConfig
	Matching *matcher.MatchingConfig
	Rules    []rules.Rule
}

// DefaultConfig returns a session configuration with all defaults.
func DefaultConfig() *Config {
	return &Config{
		Parser:   parsers.DefaultParserConfig(),
		Matching: matcher.DefaultMatchingConfig(),
		Rules:    rules.DefaultRules(),
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Parser != nil {
		if err := c.Parser.Validate(); err != nil {
			return fmt.Errorf("parser config: %w", err)
		}
	}
	if c.Matching != nil {
		if err := c.Matching.Validate(); err != nil {
			return fmt.Errorf("matching config: %w", err)
		}
	}
	return nil
}

// ImportResult summarizes one statement file import.
type ImportResult struct {
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Filtered int      `json:"filtered"`
	Warnings []string `json:"warnings,omitempty"`
}

// Session is the working set for reconciling one account's statement
// records for one month. It is not safe for concurrent use; callers
// serialize access, typically one session per request or CLI run.
type Session struct {
	schoolID  string
	accountID string
	year      int
	month     time.Month
	kind      models.AccountKind

	records []*models.BankTransactionRecord
	entries []*models.LedgerEntry

	ledger  store.LedgerStore
	uploads store.UploadRegistry
	engine  *matcher.MatchingEngine
	rules   *rules.Engine
	config  *Config
	logger  logger.Logger

	// now is swappable so tests control reconciliation timestamps.
	now func() time.Time
}

// New creates a session for the given school, account and period.
// The ledger store is required; the upload registry may be nil when
// upload tracking is not wanted.
func New(schoolID, accountID string, year int, month time.Month, kind models.AccountKind, ledger store.LedgerStore, uploads store.UploadRegistry, config *Config) (*Session, error) {
	if schoolID == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "schoolID", schoolID, nil)
	}
	if accountID == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "accountID", accountID, nil)
	}
	if month < time.January || month > time.December {
		return nil, errors.ValidationError(errors.CodeInvalidDate, "month", int(month), nil)
	}
	if ledger == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "ledger", nil, nil)
	}

	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidState, "config", nil, err)
	}

	return &Session{
		schoolID:  schoolID,
		accountID: accountID,
		year:      year,
		month:     month,
		kind:      kind,
		ledger:    ledger,
		uploads:   uploads,
		engine:    matcher.NewMatchingEngine(config.Matching),
		rules:     rules.NewEngine(config.Rules),
		config:    config,
		logger:    logger.GetGlobalLogger().WithComponent("session"),
		now:       time.Now,
	}, nil
}

// ImportFile parses one statement file and merges its records into the
// session. Re-importing the same file is a no-op for records already
// present. For investment accounts a file the parser cannot recognize
// signals a document-only upload, reported as ErrCoverSheetRequired so
// the caller can collect the cover sheet figures instead.
func (s *Session) ImportFile(ctx context.Context, fileName string, content []byte, fileURL string) (*ImportResult, error) {
	format := parsers.DetectFormat(fileName)
	if format == parsers.FormatUnknown && s.kind == models.AccountInvestment {
		return nil, ErrCoverSheetRequired
	}

	records, stats, err := parsers.Parse(content, fileName, s.kind, s.config.Parser)
	if err != nil {
		return nil, err
	}

	merged, added := dedup.Merge(s.records, records)
	s.records = merged

	if s.uploads != nil && fileURL != "" {
		err := s.uploads.Upsert(ctx, s.uploadKey(), store.UploadFields{DataFileURL: fileURL})
		if err != nil {
			return nil, errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeMutationFailed,
				"upload registration failed")
		}
	}

	s.logger.WithFields(logger.Fields{
		"file":     fileName,
		"added":    added,
		"skipped":  len(records) - added,
		"filtered": stats.Filtered,
	}).Info("Statement file imported")

	return &ImportResult{
		Added:    added,
		Skipped:  len(records) - added,
		Filtered: stats.Filtered,
		Warnings: stats.Warnings,
	}, nil
}

// Rematch reloads the ledger window and recomputes matches for every
// non-terminal record. It is safe to call repeatedly; confirmed and
// materialized records keep their state.
func (s *Session) Rematch(ctx context.Context) error {
	from, to := s.Window()

	entries, err := s.ledger.QueryEntries(ctx, store.EntryQuery{
		SchoolID:  s.schoolID,
		AccountID: s.accountID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeQueryFailed,
			"ledger window query failed")
	}

	s.entries = entries
	s.engine.Match(s.records, s.entries)

	s.logger.WithFields(logger.Fields{
		"records": len(s.records),
		"entries": len(s.entries),
	}).Debug("Rematch complete")

	return nil
}

// Window returns the ledger query window for the session's month,
// padded on both sides by the matching date tolerance so entries
// settling just outside the month still participate in matching.
func (s *Session) Window() (time.Time, time.Time) {
	tolerance := time.Duration(s.config.Matching.DateToleranceDays) * 24 * time.Hour
	start := time.Date(s.year, s.month, 1, 0, 0, 0, 0, time.UTC)
	end := models.LastDayOfMonth(s.year, s.month)
	return start.Add(-tolerance), end.Add(tolerance)
}

// Records returns the session's current working set in import order.
func (s *Session) Records() []*models.BankTransactionRecord {
	return s.records
}

// Entries returns the ledger window loaded by the last Rematch.
func (s *Session) Entries() []*models.LedgerEntry {
	return s.entries
}

// Clear drops the working set and the cached ledger window. The ledger
// store itself is untouched.
func (s *Session) Clear() {
	s.records = nil
	s.entries = nil
}

// SuggestFor returns the categorization suggestion for a record's
// description, if any rule matches.
func (s *Session) SuggestFor(externalID string) (rules.Suggestion, bool) {
	record := s.findRecord(externalID)
	if record == nil {
		return rules.Suggestion{}, false
	}
	return s.rules.Suggest(record.Description)
}

func (s *Session) uploadKey() store.UploadKey {
	return store.UploadKey{
		AccountID: s.accountID,
		Month:     s.month,
		Year:      s.year,
		Kind:      s.kind,
	}
}

func (s *Session) findRecord(externalID string) *models.BankTransactionRecord {
	for _, record := range s.records {
		if record.ExternalID == externalID {
			return record
		}
	}
	return nil
}

func (s *Session) findEntry(id string) *models.LedgerEntry {
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (s *Session) removeRecord(externalID string) {
	for i, record := range s.records {
		if record.ExternalID == externalID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}
