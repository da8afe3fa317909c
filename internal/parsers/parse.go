package parsers

import (
	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/pkg/errors"
	"school-finance-reconciler/pkg/logger"
)

// Parse converts raw statement file content into normalized transaction
// records. The format is sniffed from the file name. Malformed content
// is never an error: as many valid records as possible are recovered and
// warnings are collected in the stats. Only an unsupported extension is
// reported as an error, with no partial processing attempted.
func Parse(content []byte, fileName string, kind models.AccountKind, config *ParserConfig) ([]*models.BankTransactionRecord, *ParseStats, error) {
	if config == nil {
		config = DefaultParserConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("parsers").WithFields(logger.Fields{
		"file":         fileName,
		"account_kind": kind,
	})

	var (
		records []*models.BankTransactionRecord
		stats   *ParseStats
	)

	switch format := DetectFormat(fileName); format {
	case FormatStructured:
		records, stats = NewStructuredParser(config).Parse(string(content), kind)
	case FormatDelimited:
		records, stats = NewDelimitedParser(config).Parse(string(content), kind)
	default:
		log.Warn("Unsupported statement format")
		return nil, nil, errors.FileError(errors.CodeUnsupportedFormat, fileName, nil)
	}

	records, filtered := FilterInternalMovements(records, config)
	stats.Filtered = filtered

	log.WithFields(logger.Fields{
		"records":  len(records),
		"skipped":  stats.Skipped,
		"filtered": stats.Filtered,
		"fallback": stats.UsedFallback,
	}).Info("Parsed statement file")

	return records, stats, nil
}
