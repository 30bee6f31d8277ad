package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wordscan/internal/model"
)

// defaultConcurrency is the number of concurrent runs when none is configured.
const defaultConcurrency = 10

// BatchProcessor runs one pipeline per seed with a concurrency limit.
// It uses errgroup to manage goroutines.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline so that a Pipeline stays a single run.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for one seed.
	// Each seed gets a fresh pipeline so per-site settings apply.
	pipelineFactory func(seed string) *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(seed string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     defaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the pipeline of every seed.
//
// A failing seed does not stop the others. Reports are returned in the
// order of seeds, failed runs included; a seed that never started because
// the context was cancelled has a nil report. The returned error joins the
// errors of all failed runs.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	reports := make([]*model.CrawlReport, len(seeds))
	errs := make([]error, len(seeds))

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", seed, err)
				return nil
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			report := model.NewCrawlReport(seed, 0, 0, 0)
			if err := bp.pipelineFactory(seed).Execute(ctx, report); err != nil {
				bp.logger.Warn("run failed", "seed", seed, "error", err)
				errs[i] = fmt.Errorf("%s: %w", seed, err)
			}
			reports[i] = report
			return nil
		})
	}

	// Goroutines never return errors; failures are collected in errs.
	_ = g.Wait() //nolint:errcheck // always nil

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return reports, errors.Join(errs...)
}
