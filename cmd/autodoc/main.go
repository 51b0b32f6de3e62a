// AutoDoc - Automated business report generator
// Turns a CSV, Excel or JSON file into a PDF and/or Excel report.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/autodoc/autodoc/pkg/analyzer"
	"github.com/autodoc/autodoc/pkg/config"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
	"github.com/autodoc/autodoc/pkg/pipeline"
	"github.com/autodoc/autodoc/pkg/storage/object"
	s3store "github.com/autodoc/autodoc/pkg/storage/s3"
	"github.com/autodoc/autodoc/pkg/summary"
	"github.com/autodoc/autodoc/pkg/telemetry"
	"github.com/autodoc/autodoc/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	configFile string
	verbose    bool
)

// Report flags, shared by the root and watch commands.
var (
	inputFile  string
	outputDir  string
	title      string
	logoFile   string
	withExcel  bool
	noPDF      bool
	withAI     bool
	publishURI string
)

var (
	configManager     = config.NewManager()
	shutdownTelemetry telemetry.ShutdownFunc
)

func main() {
	err := rootCmd.Execute()
	if shutdownTelemetry != nil {
		shutdownTelemetry(context.Background())
	}
	if err != nil {
		tui.PrintError(os.Stderr, err, verbose)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autodoc",
	Short: "AutoDoc - Generate business reports from tabular data",
	Long: `AutoDoc reads a CSV, Excel (.xlsx/.xls) or JSON file, computes summary KPIs, draws charts,
optionally writes a narrative summary, and renders a PDF and/or Excel report.

Setting OPENAI_API_KEY switches the narrative from the built-in template to a
language model.`,
	Example: `  autodoc -i vendas.csv
  autodoc -i vendas.xlsx -t "Relatório Mensal" -l logo.png --excel --ai
  autodoc -i vendas.json --no-pdf --excel -o reports/
  autodoc -i vendas.csv --publish s3://reports/monthly
  autodoc -i vendas.csv --publish file:///mnt/shared/reports`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE:              runGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (overrides the search path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline stages and show stack traces")

	addReportFlags(rootCmd)
	rootCmd.MarkFlagRequired("input")
}

// addReportFlags registers the flags that shape a report run.
func addReportFlags(cmd *cobra.Command) {
	defaults := config.Default().Report

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file (.csv, .xlsx, .xls, .json)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", defaults.OutputDir, "Output directory")
	cmd.Flags().StringVarP(&title, "title", "t", defaults.Title, "Report title")
	cmd.Flags().StringVarP(&logoFile, "logo", "l", "", "Logo image placed on the PDF")
	cmd.Flags().BoolVar(&withExcel, "excel", false, "Also write report.xlsx")
	cmd.Flags().BoolVar(&noPDF, "no-pdf", false, "Skip report.pdf")
	cmd.Flags().BoolVar(&withAI, "ai", false, "Add a narrative summary")
	cmd.Flags().StringVar(&publishURI, "publish", "", "Publish reports to s3://bucket/prefix or file:///dir")
}

// loadConfig resolves the layered configuration and starts tracing.
func loadConfig(cmd *cobra.Command, args []string) error {
	configManager.File = configFile
	if err := configManager.Load(); err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(cmd.Context(), configManager.Get().Telemetry)
	if err != nil {
		return err
	}
	shutdownTelemetry = shutdown
	return nil
}

// reportRequest merges the report flags over the loaded configuration.
func reportRequest(cmd *cobra.Command, cfg *config.Config) pipeline.Request {
	req := pipeline.Request{
		InputPath: inputFile,
		OutputDir: cfg.Report.OutputDir,
		Title:     cfg.Report.Title,
		LogoPath:  cfg.Report.Logo,
		PDF:       !noPDF,
		Excel:     withExcel,
		Summary:   withAI,
	}
	if cmd.Flags().Changed("output") {
		req.OutputDir = outputDir
	}
	if cmd.Flags().Changed("title") {
		req.Title = title
	}
	if cmd.Flags().Changed("logo") {
		req.LogoPath = logoFile
	}
	return req
}

// newRunner builds a pipeline runner from the configuration and flags.
func newRunner(ctx context.Context, cfg *config.Config, progress bool) (*pipeline.Runner, error) {
	opts := []pipeline.Option{
		pipeline.WithAnalyzer(analyzer.New(analyzer.WithChartSize(cfg.Report.ChartWidth, cfg.Report.ChartHeight))),
	}
	if withAI {
		opts = append(opts, pipeline.WithSummarizer(summary.New(cfg.Summary)))
	}
	if progress {
		opts = append(opts, pipeline.WithStageHook(tui.StageProgress(os.Stderr)))
	}
	if verbose {
		opts = append(opts, pipeline.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}

	if publishURI != "" {
		publisher, err := newPublisher(ctx, cfg.Storage.S3, publishURI)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithPublisher(publisher))
	}

	return pipeline.New(opts...), nil
}

// newPublisher picks the publisher for uri: s3://bucket/prefix uses the s3
// settings, file:///dir (or a plain path) copies into a directory.
func newPublisher(ctx context.Context, settings config.S3Config, uri string) (pipeline.Publisher, error) {
	if !strings.HasPrefix(uri, "s3://") {
		dir, ok := object.ParseURI(uri)
		if !ok {
			return nil, fmt.Errorf("unsupported publish target %q (want s3://bucket/prefix or file:///dir)", uri)
		}
		store, err := object.NewLocalStorage(dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	loc, err := s3store.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	cfg := s3store.FromSettings(settings)
	cfg.Bucket = loc.Bucket

	client, err := s3store.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	prefix := loc.Prefix
	if prefix == "" {
		prefix = settings.Prefix
	}
	return s3store.NewPublisher(client, prefix), nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := configManager.Get()

	runner, err := newRunner(ctx, cfg, true)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, reportRequest(cmd, cfg))
	if aderrors.IsCode(err, aderrors.CodePublishFailed) && res != nil {
		// The reports were written; show them and whatever did upload.
		tui.PrintResult(os.Stdout, res)
		return err
	}
	if err != nil {
		return err
	}

	tui.PrintResult(os.Stdout, res)
	if verbose {
		tui.PrintDone(os.Stderr, res)
	}
	return nil
}
