package parsers

import (
	"testing"
	"time"

	"school-finance-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

func TestDelimitedParserMixedDelimiters(t *testing.T) {
	// Comma-separated header over semicolon-separated data rows, with
	// decimal commas in the amounts. Seen in real bank exports.
	content := "Data,Descricao,Valor\n" +
		"15/01/2024;PAGAMENTO FORNECEDOR X;-1200,50\n"

	records, stats := NewDelimitedParser(nil).Parse(content, models.AccountChecking)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if stats.RecordsParsed != 1 {
		t.Errorf("stats records = %d, want 1", stats.RecordsParsed)
	}

	record := records[0]
	if record.Direction != models.DirectionDebit {
		t.Errorf("direction = %s, want DEBIT", record.Direction)
	}
	if !record.Amount.Equal(decimal.NewFromFloat(1200.50)) {
		t.Errorf("amount = %s, want 1200.50 magnitude", record.Amount)
	}
	if !record.Date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %s, want 2024-01-15", record.Date)
	}
	if record.Description != "PAGAMENTO FORNECEDOR X" {
		t.Errorf("description = %q", record.Description)
	}
	if record.ExternalID != "L0-1200.50-0" {
		t.Errorf("external id = %q, want L0-1200.50-0", record.ExternalID)
	}
}

func TestDelimitedParserHeaderless(t *testing.T) {
	content := "15/01/2024;CREDITO AVULSO;100,00\n"

	records, _ := NewDelimitedParser(nil).Parse(content, models.AccountChecking)

	if len(records) != 1 {
		t.Fatalf("headerless content must parse from the first row, got %d records", len(records))
	}
	if records[0].Direction != models.DirectionCredit {
		t.Errorf("direction = %s, want CREDIT", records[0].Direction)
	}
}

func TestDelimitedParserBadRowsSkippedIndividually(t *testing.T) {
	content := "Data,Descricao,Valor\n" +
		"15/01/2024;OK UM;-10,00\n" +
		"not-a-date;RUIM;-20,00\n" +
		"16/01/2024;OK DOIS;abc\n" +
		"so-uma-coluna\n" +
		"17/01/2024;OK TRES;30,00\n"

	records, stats := NewDelimitedParser(nil).Parse(content, models.AccountChecking)

	if len(records) != 2 {
		t.Fatalf("expected 2 usable records, got %d", len(records))
	}
	if stats.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", stats.Skipped)
	}
	if len(stats.Warnings) != 3 {
		t.Errorf("warnings = %v, want one per skipped row", stats.Warnings)
	}
	if records[0].Description != "OK UM" || records[1].Description != "OK TRES" {
		t.Errorf("wrong records survived: %s, %s", records[0].Description, records[1].Description)
	}
}

func TestDelimitedParserQuotedFields(t *testing.T) {
	content := "\"15/01/2024\";\"PAGAMENTO, PARCELA 1\";\"-50,00\"\n"

	records, _ := NewDelimitedParser(nil).Parse(content, models.AccountChecking)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Description != "PAGAMENTO, PARCELA 1" {
		t.Errorf("description = %q, want comma preserved inside quotes", records[0].Description)
	}
}

func TestDelimitedParserPositionsSkipHeaderAndBadRows(t *testing.T) {
	content := "Data,Descricao,Valor\n" +
		"15/01/2024;A;-10,00\n" +
		"bad;B;-20,00\n" +
		"16/01/2024;C;-30,00\n"

	records, _ := NewDelimitedParser(nil).Parse(content, models.AccountChecking)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Positions count accepted records only, so re-imports of a cleaned
	// file keep stable ids for the surviving rows.
	if records[0].ExternalID != "L0-10.00-0" {
		t.Errorf("first id = %q, want L0-10.00-0", records[0].ExternalID)
	}
	if records[1].ExternalID != "L1-30.00-1" {
		t.Errorf("second id = %q, want L1-30.00-1", records[1].ExternalID)
	}
}

func TestDelimitedParserEmptyContent(t *testing.T) {
	records, stats := NewDelimitedParser(nil).Parse("", models.AccountChecking)

	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if len(stats.Warnings) == 0 {
		t.Error("expected a warning for empty content")
	}
}
