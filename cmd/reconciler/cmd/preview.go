package cmd

import (
	"fmt"
	"os"

	"school-finance-reconciler/cmd/reconciler/config"
	"school-finance-reconciler/internal/dedup"
	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/internal/parsers"
	"school-finance-reconciler/internal/reporter"

	"github.com/spf13/cobra"
)

// Flags for the preview command
var (
	previewKind             string
	previewOutputFormat     string
	previewInternalPatterns []string
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview [files...]",
	Short: "Parse statement files and show what the engine would import",
	Long: `Preview parses one or more bank statement files without touching any
ledger and prints the records the engine would import, after internal
movement filtering.

Examples:
  # Inspect an OFX export
  reconciler preview --kind checking statement.ofx

  # Inspect a delimited export as JSON
  reconciler preview --kind investment --output-format json extrato.csv`,

	Args:    cobra.MinimumNArgs(1),
	PreRunE: validatePreviewFlags,
	RunE:    runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVarP(&previewKind, "kind", "k", "checking", "account kind: checking, investment")
	previewCmd.Flags().StringVarP(&previewOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	previewCmd.Flags().StringSliceVar(&previewInternalPatterns, "internal-patterns", []string{}, "extra internal movement patterns to filter")
}

func validatePreviewFlags(cmd *cobra.Command, args []string) error {
	kind := models.AccountKind(previewKind)
	if !kind.IsValid() {
		return fmt.Errorf("invalid account kind '%s'. Valid kinds: checking, investment", previewKind)
	}

	for _, file := range args {
		if err := validateFileExists(file, "statement file"); err != nil {
			return err
		}
	}

	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	if err := setupLogging(); err != nil {
		os.Exit(handler.HandleError(err))
	}

	parserConfig := config.CreateParserConfig(previewInternalPatterns)
	kind := models.AccountKind(previewKind)

	var records []*models.BankTransactionRecord
	for _, file := range args {
		content, err := os.ReadFile(file)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}

		parsed, stats, err := parsers.Parse(content, file, kind, parserConfig)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}

		merged, added := dedup.Merge(records, parsed)
		fmt.Fprintf(os.Stderr, "%s: %s, %d new after dedup\n", file, stats, added)
		records = merged
	}

	reportConfig, err := config.CreateReportConfig(previewOutputFormat, false)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	report := reporter.BuildReport("", "", 0, 0, records, nil)
	if err := generator.GenerateReport(report, os.Stdout); err != nil {
		os.Exit(handler.HandleError(err))
	}

	return nil
}

// validateFileExists checks that a file exists and is not a directory
func validateFileExists(path, description string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist: %s", description, path)
		}
		return fmt.Errorf("cannot access %s %s: %w", description, path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file: %s", description, path)
	}

	return nil
}
