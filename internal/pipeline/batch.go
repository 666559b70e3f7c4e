package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/propfolio/ownergraph/internal/model"
)

// BatchProcessor handles concurrent building of multiple portfolios.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-build execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each build.
	// We use a factory to ensure each build gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// maxDepth is the crawl depth recorded in each build's report.
	maxDepth int

	// concurrency is the maximum number of concurrent builds.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed reports.
	// Access is synchronized via mutex.
	results []*model.PortfolioReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent builds.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchMaxDepth sets the crawl depth recorded in each report.
func WithBatchMaxDepth(depth int) BatchOption {
	return func(b *BatchProcessor) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each build to create a
// fresh pipeline instance. This ensures that pipeline state doesn't
// leak between builds and allows for per-build customization if needed.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		maxDepth:        1,
		concurrency:     4,
		results:         make([]*model.PortfolioReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch builds portfolios for multiple seed parcels concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each seed gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for seeds whose build failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []model.BBL) ([]*model.PortfolioReport, error) {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.PortfolioReport, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("building portfolio",
				"seed", seed.Key(),
				"index", i+1,
				"total", len(seeds),
			)

			state := NewState(seed, bp.maxDepth)
			p := bp.pipelineFactory()
			err := p.Execute(ctx, state)

			// Store result regardless of error; the report carries
			// the error information if the build failed.
			bp.mu.Lock()
			bp.results[i] = state.Report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("build failed",
					"seed", seed.Key(),
					"error", err,
				)
				// Don't return the error to the errgroup; other
				// builds should continue.
				return nil
			}

			bp.logger.Info("build completed", "seed", seed.Key())
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback builds portfolios for multiple seeds and
// calls a callback for each completed build. This is useful for
// streaming results.
//
// The callback receives the report and the index of the seed in the
// original slice. The callback is called from the goroutine that
// completed the build, so it should be thread-safe if it accesses
// shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []model.BBL,
	callback func(report *model.PortfolioReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			state := NewState(seed, bp.maxDepth)
			p := bp.pipelineFactory()
			_ = p.Execute(ctx, state) //nolint:errcheck // Error is stored in the report

			callback(state.Report, i)

			return nil
		})
	}

	return g.Wait()
}
