package parsers

import (
	"strings"

	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/pkg/errors"
	"school-finance-reconciler/pkg/logger"
)

const (
	blockOpenTag  = "<STMTTRN>"
	blockCloseTag = "</STMTTRN>"
)

// StructuredParser parses the tag/value block bank-export format
// (.ofx/.ofc). Extraction is block-scoped: each transaction block is
// located first, then the named fields are read independently within it,
// so a malformed field degrades only that field.
type StructuredParser struct {
	config *ParserConfig
	logger logger.Logger
}

// NewStructuredParser creates a parser for the tag/value block format.
func NewStructuredParser(config *ParserConfig) *StructuredParser {
	if config == nil {
		config = DefaultParserConfig()
	}

	return &StructuredParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("structured_parser"),
	}
}

// Parse extracts records from structured content. If block-scoped
// extraction yields zero records (some exports delimit blocks loosely,
// without closing tags), it falls back to a permissive split on the
// block marker before giving up.
func (p *StructuredParser) Parse(content string, kind models.AccountKind) ([]*models.BankTransactionRecord, *ParseStats) {
	stats := &ParseStats{}

	// Tag scanning is case-insensitive; descriptions are normalized to
	// uppercase downstream anyway, so work on an uppercased copy.
	upper := strings.ToUpper(content)

	records := p.parseBlocks(p.scanBlocks(upper, stats), kind, stats)

	if len(records) == 0 && strings.Contains(upper, blockOpenTag) {
		p.logger.WithField("blocks_seen", stats.BlocksSeen).
			Debug("Strict block scan recovered nothing, retrying with permissive split")
		stats.UsedFallback = true
		records = p.parseBlocks(p.splitBlocks(upper, stats), kind, stats)
	}

	if len(records) == 0 {
		stats.AddWarning("no transactions recovered from structured content")
	}

	return records, stats
}

// scanBlocks returns the content of every <STMTTRN>...</STMTTRN> block.
func (p *StructuredParser) scanBlocks(upper string, stats *ParseStats) []string {
	var blocks []string

	rest := upper
	for {
		start := strings.Index(rest, blockOpenTag)
		if start == -1 {
			break
		}
		rest = rest[start+len(blockOpenTag):]

		end := strings.Index(rest, blockCloseTag)
		if end == -1 {
			break
		}

		blocks = append(blocks, rest[:end])
		rest = rest[end+len(blockCloseTag):]
	}

	stats.BlocksSeen += len(blocks)
	return blocks
}

// splitBlocks is the permissive fallback: everything after each block
// marker up to the next marker is treated as one block.
func (p *StructuredParser) splitBlocks(upper string, stats *ParseStats) []string {
	parts := strings.Split(upper, blockOpenTag)
	if len(parts) < 2 {
		return nil
	}

	blocks := parts[1:]
	stats.BlocksSeen += len(blocks)
	return blocks
}

// parseBlocks extracts one raw record per block and validates it.
// Positions number the accepted records, not the blocks, so a skipped
// block does not shift the external ids of the records after it.
func (p *StructuredParser) parseBlocks(blocks []string, kind models.AccountKind, stats *ParseStats) []*models.BankTransactionRecord {
	var records []*models.BankTransactionRecord

	position := 0
	for i, block := range blocks {
		raw := p.extractBlockFields(block, i)
		raw.position = position

		record, err := raw.validate(kind)
		if err != nil {
			stats.Skipped++
			perr := errors.ParseError(errors.CodeInvalidBlock, i, err)
			stats.AddWarning("%s", perr.Message)
			p.logger.WithError(perr).WithField("block", i).Debug("Skipping unusable block")
			continue
		}

		records = append(records, record)
		stats.RecordsParsed++
		position++
	}

	return records
}

// extractBlockFields reads the named fields of one block. Each field is
// read independently; a missing or malformed field leaves only that
// field unset on the raw record.
func (p *StructuredParser) extractBlockFields(block string, blockIndex int) *rawRecord {
	raw := &rawRecord{}

	if value, ok := tagValue(block, "DTPOSTED"); ok {
		if date, err := models.ParsePostingDate(value); err == nil {
			raw.date = &date
		} else {
			p.logger.WithError(err).WithField("block", blockIndex).Debug("Malformed posting date")
		}
	}

	if value, ok := tagValue(block, "TRNAMT"); ok {
		if amount, err := models.ParseStatementAmount(value); err == nil {
			raw.amount = &amount
		} else {
			p.logger.WithError(err).WithField("block", blockIndex).Debug("Malformed amount")
		}
	}

	if value, ok := tagValue(block, "FITID"); ok {
		raw.bankID = value
	}

	// Memo carries the payee text in the supported exports; NAME is the
	// fallback some banks use instead.
	if value, ok := tagValue(block, "MEMO"); ok && value != "" {
		raw.description = value
	} else if value, ok := tagValue(block, "NAME"); ok {
		raw.description = value
	}

	return raw
}

// tagValue extracts the value following <TAG> up to the end of line or
// the next tag. SGML-style exports do not close value tags.
func tagValue(block, tag string) (string, bool) {
	marker := "<" + tag + ">"
	idx := strings.Index(block, marker)
	if idx == -1 {
		return "", false
	}

	value := block[idx+len(marker):]
	if end := strings.IndexAny(value, "<\r\n"); end != -1 {
		value = value[:end]
	}

	return strings.TrimSpace(value), true
}
