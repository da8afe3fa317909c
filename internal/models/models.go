// Package models defines the core data types of the reconciliation engine:
// statement records extracted from bank files, ledger entries held by the
// external store, and the statement upload registry record, together with
// the normalization helpers shared by the parsers.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents which way a bank transaction moved money.
type Direction string

const (
	// DirectionCredit represents money entering the account.
	DirectionCredit Direction = "CREDIT"
	// DirectionDebit represents money leaving the account.
	DirectionDebit Direction = "DEBIT"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is valid.
func (d Direction) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Flow returns the ledger flow corresponding to this direction:
// credits map to incoming entries, debits to outgoing ones.
func (d Direction) Flow() Flow {
	if d == DirectionCredit {
		return FlowIncoming
	}
	return FlowOutgoing
}

// Flow represents the side of a ledger entry.
type Flow string

const (
	// FlowIncoming represents income entries.
	FlowIncoming Flow = "INCOMING"
	// FlowOutgoing represents expense entries.
	FlowOutgoing Flow = "OUTGOING"
)

// String returns the string representation of Flow.
func (f Flow) String() string {
	return string(f)
}

// IsValid checks if the flow is valid.
func (f Flow) IsValid() bool {
	return f == FlowIncoming || f == FlowOutgoing
}

// AccountKind identifies which statement stream a record came from.
type AccountKind string

const (
	// AccountChecking is the regular movement account.
	AccountChecking AccountKind = "checking"
	// AccountInvestment is the investment sub-account.
	AccountInvestment AccountKind = "investment"
)

// IsValid checks if the account kind is valid.
func (k AccountKind) IsValid() bool {
	return k == AccountChecking || k == AccountInvestment
}

// LifecycleState tracks a statement record from import to reconciliation.
type LifecycleState string

const (
	// StatePending marks a record the matcher could not link.
	StatePending LifecycleState = "pending"
	// StateCandidate marks a record linked to an unreconciled entry,
	// awaiting confirmation.
	StateCandidate LifecycleState = "candidate"
	// StateMaterialized marks a record that produced a brand-new ledger
	// entry via quick-create. Terminal.
	StateMaterialized LifecycleState = "materialized"
	// StateReconciled marks a record whose linked entry is reconciled.
	// Terminal.
	StateReconciled LifecycleState = "reconciled"
)

// BankTransactionRecord is one transaction line extracted from a bank
// statement file. Records exist only for the duration of a reconciliation
// session and are never persisted as such.
type BankTransactionRecord struct {
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"` // non-negative magnitude
	Direction     Direction       `json:"direction"`
	ExternalID    string          `json:"externalId"`
	LinkedEntryID string          `json:"linkedEntryId,omitempty"`
	State         LifecycleState  `json:"lifecycleState"`
	AccountKind   AccountKind     `json:"accountKind"`
}

// Validate performs basic validation on the record.
func (r *BankTransactionRecord) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return fmt.Errorf("record external id cannot be empty")
	}

	if r.Amount.IsNegative() || r.Amount.IsZero() {
		return fmt.Errorf("record amount must be a positive magnitude, got %s", r.Amount)
	}

	if !r.Direction.IsValid() {
		return fmt.Errorf("invalid record direction: %s", r.Direction)
	}

	if r.Date.IsZero() {
		return fmt.Errorf("record date cannot be zero")
	}

	return nil
}

// String returns a string representation of the record.
func (r *BankTransactionRecord) String() string {
	return fmt.Sprintf("Record{ID: %s, Date: %s, Amount: %s %s, State: %s}",
		r.ExternalID, r.Date.Format("2006-01-02"), r.Amount.String(), r.Direction, r.State)
}

// IsCredit returns true if the record represents money entering the account.
func (r *BankTransactionRecord) IsCredit() bool {
	return r.Direction == DirectionCredit
}

// IsDebit returns true if the record represents money leaving the account.
func (r *BankTransactionRecord) IsDebit() bool {
	return r.Direction == DirectionDebit
}

// EntryStatus values carried on ledger entries.
const (
	EntryStatusOpen       = "open"
	EntryStatusReconciled = "reconciled"
)

// LedgerEntry is a persisted financial movement in the school's books.
// The engine consumes entries through the store interfaces; this type is
// the wire shape both store implementations share.
type LedgerEntry struct {
	ID             string          `json:"id"`
	SchoolID       string          `json:"schoolId"`
	AccountID      string          `json:"accountId,omitempty"`
	Date           time.Time       `json:"date"`
	SettlementDate *time.Time      `json:"settlementDate,omitempty"`
	Amount         decimal.Decimal `json:"amount"` // non-negative magnitude
	Flow           Flow            `json:"flow"`
	Category       string          `json:"category,omitempty"`
	ProgramID      string          `json:"programId,omitempty"`
	RubricID       string          `json:"rubricId,omitempty"`
	SupplierID     string          `json:"supplierId,omitempty"`
	Description    string          `json:"description"`
	Reconciled     bool            `json:"reconciled"`
	ReconciledAt   *time.Time      `json:"reconciledAt,omitempty"`
	// ReconciliationRef stores the matched record's external id and
	// prevents the entry from being matched twice.
	ReconciliationRef string `json:"reconciliationRef,omitempty"`
	Status            string `json:"status,omitempty"`
	DocumentURL       string `json:"documentUrl,omitempty"`
}

// EffectiveDate returns the settlement date when present, else the
// entry's nominal date. The matcher compares against this.
func (e *LedgerEntry) EffectiveDate() time.Time {
	if e.SettlementDate != nil && !e.SettlementDate.IsZero() {
		return *e.SettlementDate
	}
	return e.Date
}

// Validate performs basic validation on the entry.
func (e *LedgerEntry) Validate() error {
	if strings.TrimSpace(e.SchoolID) == "" {
		return fmt.Errorf("entry school id cannot be empty")
	}

	if e.Amount.IsNegative() {
		return fmt.Errorf("entry amount must be a non-negative magnitude, got %s", e.Amount)
	}

	if !e.Flow.IsValid() {
		return fmt.Errorf("invalid entry flow: %s", e.Flow)
	}

	if e.Date.IsZero() {
		return fmt.Errorf("entry date cannot be zero")
	}

	return nil
}

// CoverSheetFigures holds the manually entered summary for a
// non-parseable investment statement document.
type CoverSheetFigures struct {
	GrossYield       decimal.Decimal `json:"grossYield"`
	WithheldTax      decimal.Decimal `json:"withheldTax"`
	ResultingBalance decimal.Decimal `json:"resultingBalance"`
}

// NetIncome returns gross yield minus withheld taxes.
func (c *CoverSheetFigures) NetIncome() decimal.Decimal {
	return c.GrossYield.Sub(c.WithheldTax)
}

// Validate performs basic validation on the figures.
func (c *CoverSheetFigures) Validate() error {
	if c.GrossYield.IsNegative() {
		return fmt.Errorf("gross yield cannot be negative, got %s", c.GrossYield)
	}

	if c.WithheldTax.IsNegative() {
		return fmt.Errorf("withheld tax cannot be negative, got %s", c.WithheldTax)
	}

	return nil
}

// StatementUploadRecord tracks which files were attached to an
// (account, month, year, kind) period. Uploads for the same period merge
// into one record; a document upload must not erase a previously
// uploaded data file and vice versa.
type StatementUploadRecord struct {
	AccountID   string             `json:"accountId"`
	Month       time.Month         `json:"month"`
	Year        int                `json:"year"`
	Kind        AccountKind        `json:"kind"`
	DataFileURL string             `json:"dataFileUrl,omitempty"`
	DocumentURL string             `json:"documentUrl,omitempty"`
	CoverSheet  *CoverSheetFigures `json:"coverSheet,omitempty"`
}
