package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"payment-reconciliation-engine/cmd/reconengine/config"
	"payment-reconciliation-engine/internal/engine"
	"payment-reconciliation-engine/internal/feeds"
	"payment-reconciliation-engine/internal/reporting"
	"payment-reconciliation-engine/pkg/errors"
	"payment-reconciliation-engine/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	paymentsFile    string
	externalsFile   string
	strategyName    string
	resolutionName  string
	reportTypeName  string
	outputFormat    string
	outputFile      string
	amountTolerance string
	dateTolerance   int
	minConfidence   float64
	runTimeout      time.Duration
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile internal payments against an external settlement feed",
	Long: `Reconcile loads internal payment records and external settlement records,
matches them with the selected strategy, analyzes discrepancies and applies
the selected resolution policy, then prints a report.

Examples:
  # Basic reconciliation with the fuzzy matcher
  reconengine reconcile --payments payments.csv --externals settlements.csv

  # Exact matching with a detailed JSON report
  reconengine reconcile --payments payments.csv --externals settlements.csv \
    --strategy exact --report detailed --output-format json

  # Rule-based resolution with custom tolerances
  reconengine reconcile --payments payments.csv --externals settlements.csv \
    --resolution rules --amount-tolerance 0.05 --date-tolerance 2`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Input flags
	reconcileCmd.Flags().StringVarP(&paymentsFile, "payments", "p", "", "path to internal payment CSV file (required)")
	reconcileCmd.Flags().StringVarP(&externalsFile, "externals", "e", "", "path to external settlement CSV file (required)")

	// Strategy flags
	reconcileCmd.Flags().StringVarP(&strategyName, "strategy", "s", "fuzzy", "matching strategy: exact, fuzzy, scored")
	reconcileCmd.Flags().StringVarP(&resolutionName, "resolution", "r", "automatic", "resolution policy: automatic, manual, rules")

	// Output flags
	reconcileCmd.Flags().StringVar(&reportTypeName, "report", "summary", "report type: summary, detailed, discrepancy, exception, trend, audit_trail, performance")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "text", "output format: text, json")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Tolerance flags. Only explicitly set flags override config file and
	// RECONENGINE_* env values, so no viper binding here.
	reconcileCmd.Flags().StringVarP(&amountTolerance, "amount-tolerance", "a", "", "absolute amount tolerance, e.g. 0.01")
	reconcileCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 3, "date tolerance in days")
	reconcileCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.7, "committed-match confidence floor (0.0-1.0)")

	reconcileCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "maximum time to wait for the run")

	reconcileCmd.MarkFlagRequired("payments")
	reconcileCmd.MarkFlagRequired("externals")
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(paymentsFile, "payments file"); err != nil {
		return err
	}
	if err := validateFileExists(externalsFile, "externals file"); err != nil {
		return err
	}

	if _, err := reporting.ParseReportType(reportTypeName); err != nil {
		return err
	}

	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("invalid output format %q. Valid formats: text, json", outputFormat)
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(path, description string) error {
	if path == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, path)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, path)
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("cli")

	// Flag overrides land in viper before settings are assembled. The
	// amount tolerance stays a string until LoadSettings parses it as a
	// decimal, float64 round-trips would lose precision.
	if cmd.Flags().Changed("amount-tolerance") {
		viper.Set(config.KeyAmountTolerance, amountTolerance)
	}
	if cmd.Flags().Changed("date-tolerance") {
		if dateTolerance < 0 {
			return fmt.Errorf("date tolerance cannot be negative")
		}
		viper.Set(config.KeyDateToleranceDays, dateTolerance)
	}
	if cmd.Flags().Changed("min-confidence") {
		viper.Set(config.KeyMinConfidence, minConfidence)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	matchingStrategy, err := config.BuildMatchingStrategy(strategyName, settings)
	if err != nil {
		return err
	}

	resolutionStrategy, err := config.BuildResolutionStrategy(resolutionName)
	if err != nil {
		return err
	}

	reportType, err := reporting.ParseReportType(reportTypeName)
	if err != nil {
		return err
	}

	log.WithField("payments", paymentsFile).WithField("externals", externalsFile).Info("Loading feeds")

	paymentResult, err := feeds.NewPaymentFeed(nil).LoadFile(paymentsFile)
	if err != nil {
		return err
	}
	if paymentResult.Rejected > 0 {
		log.WithField("rejected", paymentResult.Rejected).Warn("Some payment rows were rejected")
		for _, reason := range paymentResult.Reasons {
			fmt.Fprintf(os.Stderr, "payments: %s\n", reason)
		}
	}

	externalResult, err := feeds.NewExternalFeed(nil).LoadFile(externalsFile)
	if err != nil {
		return err
	}
	if externalResult.Rejected > 0 {
		log.WithField("rejected", externalResult.Rejected).Warn("Some external rows were rejected")
		for _, reason := range externalResult.Reasons {
			fmt.Fprintf(os.Stderr, "externals: %s\n", reason)
		}
	}

	eng := engine.New(settings)
	eng.SetMatchingStrategy(matchingStrategy)
	eng.SetDiscrepancyResolutionStrategy(resolutionStrategy)

	if _, err := eng.IngestInternalRecords(paymentResult.Records); err != nil {
		return err
	}
	if _, err := eng.IngestExternalRecords(externalResult.Records); err != nil {
		return err
	}

	handle, err := eng.StartReconciliation()
	if err != nil {
		return err
	}

	summary, err := handle.WaitTimeout(runTimeout)
	if err != nil {
		return err
	}

	log.WithField("run_id", summary.RunID).
		WithField("match_rate", fmt.Sprintf("%.2f", summary.MatchRate)).
		Info("Reconciliation completed")

	report, err := eng.GenerateReport(reportType)
	if err != nil {
		return err
	}

	return writeReport(report)
}

func writeReport(report *reporting.Report) error {
	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return errors.ReportingError(errors.CodeReportWrite, outputFile, err)
		}
		defer f.Close()
		out = f
	}

	if outputFormat == "json" {
		return reporting.WriteJSON(out, report)
	}
	return reporting.WriteText(out, report)
}
