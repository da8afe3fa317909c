// Package parsers converts raw bank statement file content into
// normalized transaction records.
//
// Two wire formats are supported:
//   - the structured bank-export format (tag/value blocks, one block per
//     transaction, .ofx/.ofc extensions), and
//   - delimited text (comma or semicolon separated rows, .csv extension).
//
// Parsing is a pure function of (file content, declared account kind).
// It never fails on malformed input: a malformed field degrades that one
// field, a malformed block or row is skipped, and a file from which
// nothing can be recovered yields an empty record sequence plus a
// warning. Only an unsupported file extension is reported as an error.
package parsers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"school-finance-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// Format identifies the wire format of a statement file.
type Format string

const (
	// FormatStructured is the tag/value block export (.ofx, .ofc).
	FormatStructured Format = "structured"
	// FormatDelimited is comma/semicolon separated text (.csv).
	FormatDelimited Format = "delimited"
	// FormatUnknown is any other extension. Unknown files are opaque:
	// for investment accounts they take the cover-sheet path, otherwise
	// they are rejected.
	FormatUnknown Format = "unknown"
)

// DetectFormat sniffs the wire format from the file extension.
func DetectFormat(fileName string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".ofx", ".ofc":
		return FormatStructured
	case ".csv":
		return FormatDelimited
	default:
		return FormatUnknown
	}
}

// ParseStats holds statistics about a parsing operation.
type ParseStats struct {
	BlocksSeen    int
	RecordsParsed int
	Skipped       int
	Filtered      int
	UsedFallback  bool
	Warnings      []string
}

// AddWarning records a non-fatal problem encountered while parsing.
func (ps *ParseStats) AddWarning(format string, args ...interface{}) {
	ps.Warnings = append(ps.Warnings, fmt.Sprintf(format, args...))
}

// String returns a human-readable summary of parsing statistics.
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d blocks, %d records (%d skipped, %d filtered)",
		ps.BlocksSeen, ps.RecordsParsed, ps.Skipped, ps.Filtered)
}

// rawRecord is the intermediate parse result. Every field is optional so
// block-scoped extraction can degrade a single field without losing the
// block; validation turns a raw record into a complete
// BankTransactionRecord or discards it.
type rawRecord struct {
	date        *time.Time
	description string
	amount      *decimal.Decimal // signed: negative = debit
	bankID      string
	position    int
}

// validate turns a raw record into a complete BankTransactionRecord, or
// returns an error describing why the record cannot be used.
// Zero-amount records are discarded here.
func (rr *rawRecord) validate(kind models.AccountKind) (*models.BankTransactionRecord, error) {
	if rr.date == nil {
		return nil, fmt.Errorf("record %d has no usable date", rr.position)
	}

	if rr.amount == nil {
		return nil, fmt.Errorf("record %d has no usable amount", rr.position)
	}

	if rr.amount.IsZero() {
		return nil, fmt.Errorf("record %d has zero amount", rr.position)
	}

	direction := models.DirectionCredit
	if rr.amount.IsNegative() {
		direction = models.DirectionDebit
	}

	magnitude := rr.amount.Abs()

	record := &models.BankTransactionRecord{
		Date:        *rr.date,
		Description: models.NormalizeDescription(rr.description),
		Amount:      magnitude,
		Direction:   direction,
		ExternalID:  models.SynthesizeExternalID(rr.bankID, magnitude, rr.position),
		State:       models.StatePending,
		AccountKind: kind,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}
