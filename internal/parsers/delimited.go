package parsers

import (
	"strings"

	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/pkg/errors"
	"school-finance-reconciler/pkg/logger"
)

// DelimitedParser parses comma or semicolon separated statement rows.
//
// The delimiter is sniffed per line rather than per file: real exports
// mix a comma-separated header with semicolon-separated data rows, and
// amounts carry decimal commas that would split a comma-delimited row.
// This is also why encoding/csv is not used here.
type DelimitedParser struct {
	config *ParserConfig
	logger logger.Logger
}

// NewDelimitedParser creates a parser for delimited text statements.
func NewDelimitedParser(config *ParserConfig) *DelimitedParser {
	if config == nil {
		config = DefaultParserConfig()
	}

	return &DelimitedParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("delimited_parser"),
	}
}

// Parse extracts records from delimited content. Rows that fail to yield
// a date, a description and a numeric amount are skipped individually.
func (p *DelimitedParser) Parse(content string, kind models.AccountKind) ([]*models.BankTransactionRecord, *ParseStats) {
	stats := &ParseStats{}
	var records []*models.BankTransactionRecord

	position := 0
	sawFirstRow := false

	for lineNo, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}

		if !sawFirstRow {
			sawFirstRow = true
			if p.isHeaderRow(line) {
				p.logger.WithField("line", lineNo+1).Debug("Skipping header row")
				continue
			}
		}

		stats.BlocksSeen++

		raw, ok := p.parseRow(line, position)
		if !ok {
			stats.Skipped++
			stats.AddWarning("%s", errors.ParseError(errors.CodeInvalidRow, lineNo+1, nil).Message)
			continue
		}

		record, err := raw.validate(kind)
		if err != nil {
			stats.Skipped++
			perr := errors.ParseError(errors.CodeInvalidRow, lineNo+1, err)
			stats.AddWarning("%s", perr.Message)
			p.logger.WithError(perr).WithField("line", lineNo+1).Debug("Skipping unusable row")
			continue
		}

		records = append(records, record)
		stats.RecordsParsed++
		position++
	}

	if len(records) == 0 {
		stats.AddWarning("no transactions recovered from delimited content")
	}

	return records, stats
}

// isHeaderRow reports whether the first row is a header. A header is any
// first row containing the word "date" in one of the supported
// languages.
func (p *DelimitedParser) isHeaderRow(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range p.config.HeaderWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// parseRow splits one line and extracts date, description and amount.
// Rows with fewer than three columns or an unparseable amount are
// dropped.
func (p *DelimitedParser) parseRow(line string, position int) (*rawRecord, bool) {
	fields := splitRow(line)
	if len(fields) < 3 {
		p.logger.WithField("columns", len(fields)).Debug("Row has fewer than three columns")
		return nil, false
	}

	raw := &rawRecord{position: position, description: fields[1]}

	date, err := models.ParseStatementDate(fields[0])
	if err != nil {
		p.logger.WithError(err).Debug("Row date unparseable")
		return nil, false
	}
	raw.date = &date

	amount, err := models.ParseStatementAmount(fields[2])
	if err != nil {
		p.logger.WithError(err).Debug("Row amount unparseable")
		return nil, false
	}
	raw.amount = &amount

	return raw, true
}

// splitRow splits a line on its sniffed delimiter and strips surrounding
// quotes from each field. Semicolon wins when present because amounts in
// semicolon-delimited rows contain decimal commas.
func splitRow(line string) []string {
	delimiter := ","
	if strings.Contains(line, ";") {
		delimiter = ";"
	}

	fields := strings.Split(line, delimiter)
	for i, field := range fields {
		fields[i] = strings.Trim(strings.TrimSpace(field), `"`)
	}
	return fields
}
