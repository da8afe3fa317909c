package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"school-finance-reconciler/cmd/reconciler/config"
	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/internal/reporter"
	"school-finance-reconciler/internal/session"
	"school-finance-reconciler/internal/store/sqlite"
	"school-finance-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	dbPath         string
	schoolID       string
	accountID      string
	periodYear     int
	periodMonth    int
	accountKind    string
	statementFiles []string

	outputFormat   string
	outputFile     string
	includeEntries bool

	dateTolerance    int
	internalPatterns []string

	confirmAll bool
	assumeYes  bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile statement files against the school ledger",
	Long: `Reconcile imports bank statement files into a monthly session,
matches the records against the school's ledger entries, and reports
each record's state. With --confirm-all it also confirms every
candidate match.

Examples:
  # Import and match January's checking statement
  reconciler reconcile --db ledger.db --school sch-1 --account acc-1 \
    --year 2024 --month 1 --files statement.ofx

  # Confirm all candidate matches without prompting
  reconciler reconcile --db ledger.db --school sch-1 --account acc-1 \
    --year 2024 --month 1 --files statement.ofx --confirm-all --yes

  # Investment account with a looser date tolerance, JSON output
  reconciler reconcile --db ledger.db --school sch-1 --account inv-1 \
    --year 2024 --month 1 --kind investment --files extrato.csv \
    --date-tolerance 5 --output-format json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVar(&dbPath, "db", "", "path to the ledger sqlite database (required)")
	reconcileCmd.Flags().StringVar(&schoolID, "school", "", "school id (required)")
	reconcileCmd.Flags().StringVar(&accountID, "account", "", "bank account id (required)")
	reconcileCmd.Flags().IntVar(&periodYear, "year", 0, "statement year (required)")
	reconcileCmd.Flags().IntVar(&periodMonth, "month", 0, "statement month 1-12 (required)")
	reconcileCmd.Flags().StringSliceVar(&statementFiles, "files", []string{}, "comma-separated statement file paths (required)")

	// Account flags
	reconcileCmd.Flags().StringVarP(&accountKind, "kind", "k", "checking", "account kind: checking, investment")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&includeEntries, "include-entries", false, "include the ledger window in the report")

	// Matching configuration flags
	reconcileCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 3, "date matching tolerance in days")
	reconcileCmd.Flags().StringSliceVar(&internalPatterns, "internal-patterns", []string{}, "extra internal movement patterns to filter")

	// Confirmation flags
	reconcileCmd.Flags().BoolVar(&confirmAll, "confirm-all", false, "confirm every candidate match")
	reconcileCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not prompt before confirming")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("db")
	reconcileCmd.MarkFlagRequired("school")
	reconcileCmd.MarkFlagRequired("account")
	reconcileCmd.MarkFlagRequired("year")
	reconcileCmd.MarkFlagRequired("month")
	reconcileCmd.MarkFlagRequired("files")
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	if periodMonth < 1 || periodMonth > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", periodMonth)
	}
	if periodYear < 1900 {
		return fmt.Errorf("year must be a four digit year, got %d", periodYear)
	}

	kind := models.AccountKind(accountKind)
	if !kind.IsValid() {
		return fmt.Errorf("invalid account kind '%s'. Valid kinds: checking, investment", accountKind)
	}

	if dateTolerance < 0 {
		return fmt.Errorf("date tolerance cannot be negative")
	}

	for i, file := range statementFiles {
		if err := validateFileExists(file, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return err
		}
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	if err := setupLogging(); err != nil {
		os.Exit(handler.HandleError(err))
	}

	ctx := context.Background()
	log := logger.GetGlobalLogger().WithComponent("cli")

	ledger, err := sqlite.Open(dbPath)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	sessionConfig := config.CreateSessionConfig(dateTolerance, internalPatterns)
	sess, err := session.New(schoolID, accountID, periodYear, time.Month(periodMonth),
		models.AccountKind(accountKind), ledger, ledger, sessionConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	for _, file := range statementFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			os.Exit(handler.HandleError(err))
		}

		result, err := sess.ImportFile(ctx, file, content, "")
		if err != nil {
			if err == session.ErrCoverSheetRequired {
				fmt.Fprintf(os.Stderr, "%s carries no transaction data; record its cover sheet figures instead\n", file)
				continue
			}
			os.Exit(handler.HandleError(err))
		}

		log.WithFields(logger.Fields{
			"file":     file,
			"added":    result.Added,
			"skipped":  result.Skipped,
			"filtered": result.Filtered,
		}).Info("File imported")

		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", file, warning)
		}
	}

	if err := sess.Rematch(ctx); err != nil {
		os.Exit(handler.HandleError(err))
	}

	if confirmAll {
		if err := runConfirmAll(ctx, sess); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}

	if err := writeReport(sess); err != nil {
		os.Exit(handler.HandleError(err))
	}

	return nil
}

func runConfirmAll(ctx context.Context, sess *session.Session) error {
	candidates := 0
	for _, record := range sess.Records() {
		if record.State == models.StateCandidate {
			candidates++
		}
	}
	if candidates == 0 {
		fmt.Fprintf(os.Stderr, "No candidate matches to confirm\n")
		return nil
	}

	if !assumeYes {
		fmt.Fprintf(os.Stderr, "Confirm %d candidate matches? [y/N]: ", candidates)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" && answer != "yes" {
			fmt.Fprintf(os.Stderr, "Aborted\n")
			return nil
		}
	}

	confirmed, err := sess.ConfirmAll(ctx)
	fmt.Fprintf(os.Stderr, "Confirmed %d of %d candidate matches\n", confirmed, candidates)
	return err
}

func writeReport(sess *session.Session) error {
	reportConfig, err := config.CreateReportConfig(outputFormat, includeEntries)
	if err != nil {
		return err
	}

	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	report := reporter.BuildReport(schoolID, accountID, periodYear, time.Month(periodMonth),
		sess.Records(), sess.Entries())

	writer := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		writer = f
	}

	return generator.GenerateReport(report, writer)
}

// setupLogging configures the global logger from CLI flags
func setupLogging() error {
	logConfig := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		logConfig = logger.DebugConfig()
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return err
	}

	logger.SetGlobalLogger(log)
	return nil
}
