package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseStatementAmount parses an amount string as exported by banks.
// It strips currency symbols and thousands separators and accepts either
// '.' or ',' as the decimal separator. The sign is preserved.
func ParseStatementAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Strip currency markers and spacing.
	for _, symbol := range []string{"R$", "$", " "} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.ReplaceAll(s, " ", "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		// The rightmost separator is the decimal one.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}

	return d, nil
}

// statementDateFormats are the layouts accepted in delimited statement
// files, tried in order. Day-first comes before ISO because the exports
// this engine ingests are day-first by default.
var statementDateFormats = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
}

// ParseStatementDate parses a date from a delimited statement row.
// DD/MM/YYYY dates are normalized to ISO order. The result is a pure
// calendar date in UTC.
func ParseStatementDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	for _, format := range statementDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return DateOnly(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s'", s)
}

// ParsePostingDate parses the structured format's posting dates, which
// are 8-digit YYYYMMDD prefixes possibly followed by a time and timezone
// suffix (e.g. "20240115100000[-3:GMT]").
func ParsePostingDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return time.Time{}, fmt.Errorf("posting date '%s' is shorter than YYYYMMDD", s)
	}

	t, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid posting date '%s': %w", s, err)
	}

	return DateOnly(t), nil
}

// DateOnly truncates a time to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateDiffDays returns the absolute difference between two calendar
// dates in whole days.
func DateDiffDays(a, b time.Time) int {
	diff := DateOnly(a).Sub(DateOnly(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// LastDayOfMonth returns the last calendar day of the given month, as a
// pure date in UTC.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// NormalizeDescription uppercases a description and collapses its
// internal whitespace, matching how records are compared and filtered.
func NormalizeDescription(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// SynthesizeExternalID derives a record identifier that is unique within
// an imported batch. When the source format carries a bank transaction id
// it is used as the base; otherwise the record's position stands in. The
// absolute amount and position are always appended because bank ids are
// not guaranteed unique across malformed exports.
func SynthesizeExternalID(bankID string, amount decimal.Decimal, position int) string {
	base := strings.TrimSpace(bankID)
	if base == "" {
		base = fmt.Sprintf("L%d", position)
	}
	return fmt.Sprintf("%s-%s-%d", strings.ToUpper(base), amount.Abs().StringFixed(2), position)
}
