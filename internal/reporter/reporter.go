// Package reporter renders the state of a reconciliation session for
// terminal and programmatic consumers.
//
// Supported output formats:
//   - Console: human-readable output for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per record for spreadsheet applications
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeReconciled bool `json:"include_reconciled"`
	IncludeEntries    bool `json:"include_entries"`

	// Console formatting options
	MaxItems     int  `json:"max_items"`
	SortByAmount bool `json:"sort_by_amount"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeReconciled: true,
		IncludeEntries:    false,
		MaxItems:          50,
		SortByAmount:      false,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxItems < 1 {
		return fmt.Errorf("max items must be at least 1, got %d", c.MaxItems)
	}

	return nil
}

// Summary aggregates the session's working set by lifecycle state.
type Summary struct {
	TotalRecords      int             `json:"total_records"`
	Pending           int             `json:"pending"`
	Candidates        int             `json:"candidates"`
	Reconciled        int             `json:"reconciled"`
	TotalCredits      decimal.Decimal `json:"total_credits"`
	TotalDebits       decimal.Decimal `json:"total_debits"`
	OpenEntries       int             `json:"open_entries"`
	ReconciledEntries int             `json:"reconciled_entries"`
}

// Report is the renderable snapshot of one session.
type Report struct {
	SchoolID    string                          `json:"school_id"`
	AccountID   string                          `json:"account_id"`
	Year        int                             `json:"year"`
	Month       time.Month                      `json:"month"`
	GeneratedAt time.Time                       `json:"generated_at"`
	Summary     *Summary                        `json:"summary"`
	Records     []*models.BankTransactionRecord `json:"records,omitempty"`
	Entries     []*models.LedgerEntry           `json:"entries,omitempty"`
}

// BuildReport assembles a report from the session's records and loaded
// ledger window. The inputs are not mutated.
func BuildReport(schoolID, accountID string, year int, month time.Month, records []*models.BankTransactionRecord, entries []*models.LedgerEntry) *Report {
	summary := &Summary{
		TotalRecords: len(records),
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
	}

	for _, record := range records {
		switch record.State {
		case models.StateCandidate:
			summary.Candidates++
		case models.StateReconciled, models.StateMaterialized:
			summary.Reconciled++
		default:
			summary.Pending++
		}

		if record.IsCredit() {
			summary.TotalCredits = summary.TotalCredits.Add(record.Amount)
		} else {
			summary.TotalDebits = summary.TotalDebits.Add(record.Amount)
		}
	}

	for _, entry := range entries {
		if entry.Reconciled {
			summary.ReconciledEntries++
		} else {
			summary.OpenEntries++
		}
	}

	return &Report{
		SchoolID:    schoolID,
		AccountID:   accountID,
		Year:        year,
		Month:       month,
		GeneratedAt: time.Now(),
		Summary:     summary,
		Records:     records,
		Entries:     entries,
	}
}

// ReportGenerator renders session reports in the configured format.
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders the report to the provided writer.
func (rg *ReportGenerator) GenerateReport(report *Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		// Validate rejects unknown formats; reaching this is a bug.
		return errors.InternalError(errors.CodeUnexpectedError, "generate_report", nil).
			WithContext("format", string(rg.config.Format))
	}
}

func (rg *ReportGenerator) generateConsoleReport(report *Report, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION SESSION %s / %s (%04d-%02d)\n",
		report.SchoolID, report.AccountID, report.Year, int(report.Month))
	fmt.Fprintf(writer, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummaryTable(report.Summary, writer)
	fmt.Fprintf(writer, "\n")

	records := rg.visibleRecords(report)
	if len(records) > 0 {
		fmt.Fprintf(writer, "=== STATEMENT RECORDS ===\n")
		rg.printRecordList(records, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeEntries && len(report.Entries) > 0 {
		fmt.Fprintf(writer, "=== LEDGER ENTRIES IN WINDOW ===\n")
		rg.printEntryList(report.Entries, writer)
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(report *Report, writer io.Writer) error {
	filtered := &Report{
		SchoolID:    report.SchoolID,
		AccountID:   report.AccountID,
		Year:        report.Year,
		Month:       report.Month,
		GeneratedAt: report.GeneratedAt,
		Summary:     report.Summary,
		Records:     rg.visibleRecords(report),
	}
	if rg.config.IncludeEntries {
		filtered.Entries = report.Entries
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(filtered)
}

func (rg *ReportGenerator) generateCSVReport(report *Report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"External_ID",
			"Date",
			"Description",
			"Direction",
			"Amount",
			"State",
			"Linked_Entry_ID",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, record := range rg.visibleRecords(report) {
		row := []string{
			record.ExternalID,
			record.Date.Format("2006-01-02"),
			record.Description,
			string(record.Direction),
			record.Amount.StringFixed(2),
			string(record.State),
			record.LinkedEntryID,
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write record row: %w", err)
		}
	}

	return nil
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummaryTable(summary *Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Statement Records:\n")
	fmt.Fprintf(writer, "  Total:      %d\n", summary.TotalRecords)
	fmt.Fprintf(writer, "  Reconciled: %d (%.1f%%)\n",
		summary.Reconciled,
		rg.calculatePercentage(summary.Reconciled, summary.TotalRecords))
	fmt.Fprintf(writer, "  Candidates: %d (%.1f%%)\n",
		summary.Candidates,
		rg.calculatePercentage(summary.Candidates, summary.TotalRecords))
	fmt.Fprintf(writer, "  Pending:    %d (%.1f%%)\n",
		summary.Pending,
		rg.calculatePercentage(summary.Pending, summary.TotalRecords))

	fmt.Fprintf(writer, "\nAmounts:\n")
	fmt.Fprintf(writer, "  Credits: %s\n", summary.TotalCredits.StringFixed(2))
	fmt.Fprintf(writer, "  Debits:  %s\n", summary.TotalDebits.StringFixed(2))

	fmt.Fprintf(writer, "\nLedger Window:\n")
	fmt.Fprintf(writer, "  Open:       %d\n", summary.OpenEntries)
	fmt.Fprintf(writer, "  Reconciled: %d\n", summary.ReconciledEntries)
}

func (rg *ReportGenerator) printRecordList(records []*models.BankTransactionRecord, writer io.Writer) {
	for i, record := range records {
		fmt.Fprintf(writer, "  %d. [%s] %s %s %s %s",
			i+1,
			record.State,
			record.Date.Format("2006-01-02"),
			record.Direction,
			record.Amount.StringFixed(2),
			record.Description)
		if record.LinkedEntryID != "" {
			fmt.Fprintf(writer, " -> %s", record.LinkedEntryID)
		}
		fmt.Fprintf(writer, "\n")

		if i >= rg.config.MaxItems-1 && len(records) > rg.config.MaxItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(records)-rg.config.MaxItems)
			break
		}
	}
}

func (rg *ReportGenerator) printEntryList(entries []*models.LedgerEntry, writer io.Writer) {
	for i, entry := range entries {
		status := "open"
		if entry.Reconciled {
			status = "reconciled"
		}
		fmt.Fprintf(writer, "  %d. [%s] %s %s %s %s\n",
			i+1,
			status,
			entry.EffectiveDate().Format("2006-01-02"),
			entry.Flow,
			entry.Amount.StringFixed(2),
			entry.Description)

		if i >= rg.config.MaxItems-1 && len(entries) > rg.config.MaxItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(entries)-rg.config.MaxItems)
			break
		}
	}
}

// Helper methods

func (rg *ReportGenerator) visibleRecords(report *Report) []*models.BankTransactionRecord {
	records := make([]*models.BankTransactionRecord, 0, len(report.Records))
	for _, record := range report.Records {
		if !rg.config.IncludeReconciled &&
			(record.State == models.StateReconciled || record.State == models.StateMaterialized) {
			continue
		}
		records = append(records, record)
	}

	if rg.config.SortByAmount {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Amount.GreaterThan(records[j].Amount)
		})
	}

	return records
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
