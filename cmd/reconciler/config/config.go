// Package config builds the engine configurations from CLI flag values.
package config

import (
	"fmt"

	"school-finance-reconciler/internal/matcher"
	"school-finance-reconciler/internal/parsers"
	"school-finance-reconciler/internal/reporter"
	"school-finance-reconciler/internal/session"
)

// CreateParserConfig creates a parser configuration, extending the
// default internal movement patterns with any user-supplied ones.
func CreateParserConfig(extraInternalPatterns []string) *parsers.ParserConfig {
	config := parsers.DefaultParserConfig()
	config.InternalMovementPatterns = append(config.InternalMovementPatterns, extraInternalPatterns...)
	return config
}

// CreateMatchingConfig creates a matching configuration with the specified tolerance
func CreateMatchingConfig(dateTolerance int) *matcher.MatchingConfig {
	config := matcher.DefaultMatchingConfig()
	config.DateToleranceDays = dateTolerance
	return config
}

// CreateSessionConfig assembles the session configuration from CLI overrides
func CreateSessionConfig(dateTolerance int, extraInternalPatterns []string) *session.Config {
	config := session.DefaultConfig()
	config.Parser = CreateParserConfig(extraInternalPatterns)
	config.Matching = CreateMatchingConfig(dateTolerance)
	return config
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, includeEntries bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.IncludeEntries = includeEntries

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		// CSV carries record rows only
		config.IncludeEntries = false
	default:
		return nil, fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format)
	}

	return config, nil
}
