package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/wordscan/internal/config"
	"github.com/nao1215/wordscan/internal/crawler"
	"github.com/nao1215/wordscan/internal/database"
	"github.com/nao1215/wordscan/internal/model"
	"github.com/nao1215/wordscan/internal/pipeline"
	"github.com/nao1215/wordscan/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]...",
		Short: "Crawl websites and report their most frequent words",
		Long: `Scan crawls each seed URL and reports the most frequent words of its site.

Only links on the seed's scheme, host and port are followed. Every URL is
checked with a HEAD request first; pages that are not text/html are skipped
and do not count toward the page limit. A request is retried with exponential
backoff; when all attempts fail the crawl of that seed stops and is reported
as failed.

Examples:
  # Crawl a site with the defaults (30 pages, top 5 words of 5+ characters)
  wordscan scan https://example.com

  # Crawl more pages and report more words
  wordscan scan -l 100 -n 20 https://example.com

  # Crawl several sites, two at a time
  wordscan scan -b 2 https://example.com https://example.org

  # Output JSON report to a file
  wordscan scan --json -o report.json https://example.com

  # Use a custom configuration file
  wordscan scan -c myconfig.yaml https://example.com

Configuration file (.wordscan) example:
  sites:
    example.com:
      limit: 100
      top: 10
    intranet.example.org:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addCrawlFlags(cmd)

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-progress", false,
		"Hide the progress bar")

	// History flags
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().Bool("no-save", false,
		"Do not store results in the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, pinned, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := setupLogger(cmd.ErrOrStderr(), cfg, false)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, pinned, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags.
// It also returns the site flags given explicitly on the command line.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, map[string]bool, error) {
	cfg := config.NewConfig()

	pinned, err := readCrawlFlags(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, nil, err
	}

	noProgress, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return nil, nil, err
	}
	cfg.Progress = !noProgress

	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, nil, err
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, nil, err
	}
	cfg.SaveToDB = !noSave

	cfg.Seeds = args

	return cfg, pinned, nil
}

// runScan crawls every seed of cfg and writes the reports to stdout or the
// report file. Progress and status messages go to stderr.
func runScan(
	ctx context.Context,
	cfg *config.Config,
	pinned map[string]bool,
	logger *slog.Logger,
	stdout, stderr io.Writer,
) error {
	if len(cfg.Seeds) == 0 {
		return config.ErrNoTarget
	}
	if err := validateSeeds(cfg.Seeds); err != nil {
		return err
	}

	logger.Info("starting scan",
		"seeds", cfg.Seeds,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := openReportOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	reportStep := pipeline.NewReportStep(newReportWriter(cfg, output))
	showProgress := cfg.Progress && cfg.BatchSize == 1

	if cfg.BatchSize > 1 && cfg.Progress {
		logger.Debug("progress bar disabled for concurrent crawls")
	}

	bp := pipeline.NewBatchProcessor(
		func(seed string) *pipeline.Pipeline {
			return newScanPipeline(cfg, pinned, seed, logger, stderr, showProgress, reportStep, db)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Fprintf(stderr, "Crawling %d seed(s)...\n", len(cfg.Seeds))
	startTime := time.Now()

	reports, err := bp.ProcessBatch(ctx, cfg.Seeds)

	fmt.Fprintf(stderr, "Finished %d of %d crawl(s) in %s\n",
		countCompleted(reports), len(cfg.Seeds), time.Since(startTime).Round(time.Millisecond))

	return err
}

// newScanPipeline builds the pipeline of one seed:
// crawl, close the progress bar, write the report, save it.
func newScanPipeline(
	cfg *config.Config,
	pinned map[string]bool,
	seed string,
	logger *slog.Logger,
	stderr io.Writer,
	showProgress bool,
	reportStep *pipeline.ReportStep,
	db *database.CrawlDB,
) *pipeline.Pipeline {
	var bar *progressbar.ProgressBar
	hook := func(ev crawler.PageEvent) {
		if bar != nil && !ev.Skipped {
			_ = bar.Add(1) //nolint:errcheck // display only
		}
	}

	controller := newController(cfg, pinned, seed, logger, hook)

	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithContinueOnError(true))
	p.AddStep(pipeline.NewCrawlStep(controller))
	if showProgress {
		bar = newProgressBar(stderr, controller.Limit(), seed)
		p.AddStep(progressStep{bar: bar})
	}
	p.AddStep(reportStep)
	if db != nil {
		p.AddStep(pipeline.NewSaveStep(db))
	}
	return p
}

// progressStep closes the progress bar of a crawl before its report is
// written.
type progressStep struct {
	bar *progressbar.ProgressBar
}

func (s progressStep) Name() string { return "progress" }

func (s progressStep) Do(context.Context, *model.CrawlReport) error {
	return s.bar.Finish()
}

// countCompleted returns the number of reports of successful crawls.
func countCompleted(reports []*model.CrawlReport) int {
	n := 0
	for _, r := range reports {
		if r != nil && !r.Failed() {
			n++
		}
	}
	return n
}

// openReportOutput returns the report destination: the report file when
// one is configured, stdout otherwise.
func openReportOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may name private sites; keep them readable by the owner only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter returns the writer for the configured report format.
// JSON is pretty-printed for a single seed and one report per line otherwise.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		var opts []report.JSONWriterOption
		if len(cfg.Seeds) == 1 {
			opts = append(opts, report.WithPrettyPrint())
		}
		return report.NewFullJSONWriter(w, getVersion(), opts...)
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
