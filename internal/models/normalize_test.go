package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseStatementAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "plain decimal point",
			input:    "1200.50",
			expected: "1200.50",
		},
		{
			name:     "decimal comma",
			input:    "-1200,50",
			expected: "-1200.50",
		},
		{
			name:     "thousands dot with decimal comma",
			input:    "1.200,50",
			expected: "1200.50",
		},
		{
			name:     "thousands comma with decimal point",
			input:    "1,200.50",
			expected: "1200.50",
		},
		{
			name:     "currency symbol",
			input:    "R$ 45,90",
			expected: "45.90",
		},
		{
			name:     "negative with currency symbol",
			input:    "-R$ 45,90",
			expected: "-45.90",
		},
		{
			name:     "integer",
			input:    "300",
			expected: "300",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "not a number",
			input:   "abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatementAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
			expected, _ := decimal.NewFromString(tt.expected)
			if !got.Equal(expected) {
				t.Errorf("ParseStatementAmount(%q) = %s, want %s", tt.input, got, expected)
			}
		})
	}
}

func TestParseStatementDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "day first slashes",
			input:    "15/01/2024",
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "iso",
			input:    "2024-01-15",
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "day first dashes",
			input:    "15-01-2024",
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "garbage",
			input:   "not-a-date",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatementDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseStatementDate(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParsePostingDate(t *testing.T) {
	got, err := ParsePostingDate("20240115100000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("ParsePostingDate = %s, want %s", got, expected)
	}

	got, err = ParsePostingDate("20240115100000[-3:GMT]")
	if err != nil {
		t.Fatalf("unexpected error with timezone suffix: %v", err)
	}
	if !got.Equal(expected) {
		t.Errorf("ParsePostingDate with suffix = %s, want %s", got, expected)
	}

	if _, err := ParsePostingDate("2024"); err == nil {
		t.Error("expected error for short posting date")
	}

	if _, err := ParsePostingDate("99999999"); err == nil {
		t.Error("expected error for invalid posting date")
	}
}

func TestDateDiffDays(t *testing.T) {
	a := time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 16, 1, 0, 0, 0, time.UTC)

	if got := DateDiffDays(a, b); got != 1 {
		t.Errorf("DateDiffDays across midnight = %d, want 1", got)
	}
	if got := DateDiffDays(b, a); got != 1 {
		t.Errorf("DateDiffDays is not symmetric: got %d, want 1", got)
	}
	if got := DateDiffDays(a, a); got != 0 {
		t.Errorf("DateDiffDays same date = %d, want 0", got)
	}
}

func TestLastDayOfMonth(t *testing.T) {
	tests := []struct {
		year     int
		month    time.Month
		expected time.Time
	}{
		{2024, time.January, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{2024, time.February, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{2023, time.February, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{2024, time.December, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := LastDayOfMonth(tt.year, tt.month); !got.Equal(tt.expected) {
			t.Errorf("LastDayOfMonth(%d, %s) = %s, want %s", tt.year, tt.month, got, tt.expected)
		}
	}
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pagamento  fornecedor   x", "PAGAMENTO FORNECEDOR X"},
		{"  Tarifa Pacote ", "TARIFA PACOTE"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDescription(tt.input); got != tt.expected {
			t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSynthesizeExternalID(t *testing.T) {
	amount := decimal.NewFromFloat(45.90)

	if got := SynthesizeExternalID("ab12", amount, 0); got != "AB12-45.90-0" {
		t.Errorf("with bank id: got %q, want AB12-45.90-0", got)
	}

	if got := SynthesizeExternalID("", amount, 3); got != "L3-45.90-3" {
		t.Errorf("without bank id: got %q, want L3-45.90-3", got)
	}

	negative := decimal.NewFromFloat(-45.90)
	if got := SynthesizeExternalID("AB12", negative, 0); got != "AB12-45.90-0" {
		t.Errorf("amount must be absolute: got %q, want AB12-45.90-0", got)
	}

	// Colliding bank ids stay distinct through the position suffix.
	a := SynthesizeExternalID("DUP", amount, 1)
	b := SynthesizeExternalID("DUP", amount, 2)
	if a == b {
		t.Errorf("ids with same bank id and amount must differ by position, both %q", a)
	}
}
