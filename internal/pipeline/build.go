package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/propfolio/ownergraph/internal/aggregate"
	"github.com/propfolio/ownergraph/internal/crawler"
	"github.com/propfolio/ownergraph/internal/model"
)

// BuildConfig holds configuration for the default build pipeline.
type BuildConfig struct {
	// MaxDepth is the number of crawl expansion rounds.
	MaxDepth int

	// Deadline bounds the crawl's wall-clock time. Zero disables it.
	Deadline time.Duration

	// CrawlerOpts are passed through to the crawler.
	CrawlerOpts []crawler.CrawlerOption

	// Saver persists finished reports. Nil disables persistence.
	Saver Saver

	// Logger for structured logging across all steps.
	Logger *slog.Logger
}

// BuildOption configures a BuildConfig.
type BuildOption func(*BuildConfig)

// WithBuildMaxDepth sets the number of crawl expansion rounds.
func WithBuildMaxDepth(depth int) BuildOption {
	return func(c *BuildConfig) {
		if depth > 0 {
			c.MaxDepth = depth
		}
	}
}

// WithBuildDeadline bounds the crawl's wall-clock time.
func WithBuildDeadline(d time.Duration) BuildOption {
	return func(c *BuildConfig) {
		c.Deadline = d
	}
}

// WithBuildCrawlerOptions passes options through to the crawler.
func WithBuildCrawlerOptions(opts ...crawler.CrawlerOption) BuildOption {
	return func(c *BuildConfig) {
		c.CrawlerOpts = append(c.CrawlerOpts, opts...)
	}
}

// WithBuildSaver sets the report persistence backend.
func WithBuildSaver(saver Saver) BuildOption {
	return func(c *BuildConfig) {
		c.Saver = saver
	}
}

// WithBuildLogger sets the logger used by all steps.
func WithBuildLogger(logger *slog.Logger) BuildOption {
	return func(c *BuildConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// DefaultPipeline creates a pipeline with the standard build steps:
// crawl, extract, aggregate, save.
//
// Design decision: We provide a default pipeline because:
// 1. Most callers want the full crawl-to-portfolio flow
// 2. It reduces boilerplate in the CLI
// 3. It ensures consistent step ordering
func DefaultPipeline(source crawler.DataSource, enricher aggregate.Enricher, pipelineOpts []Option, buildOpts ...BuildOption) *Pipeline {
	cfg := &BuildConfig{
		MaxDepth: crawler.DefaultMaxDepth,
		Logger:   slog.Default(),
	}
	for _, opt := range buildOpts {
		opt(cfg)
	}

	p := New(append([]Option{WithLogger(cfg.Logger)}, pipelineOpts...)...)

	crawlerOpts := append([]crawler.CrawlerOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
	}, cfg.CrawlerOpts...)

	p.AddSteps(
		NewCrawlStep(source,
			WithCrawlerOptions(crawlerOpts...),
			WithCrawlDeadline(cfg.Deadline),
			WithCrawlLogger(cfg.Logger),
		),
		NewExtractStep(WithExtractLogger(cfg.Logger)),
		NewAggregateStep(enricher, WithAggregateLogger(cfg.Logger)),
		NewSaveStep(cfg.Saver, WithSaveLogger(cfg.Logger)),
	)

	return p
}

// BuildOwnershipGraph runs the full build for one seed parcel and
// returns the assembled portfolio. It is the library entry point for
// callers that do not need per-step control.
func BuildOwnershipGraph(ctx context.Context, source crawler.DataSource, enricher aggregate.Enricher, seed model.BBL, maxDepth int, opts ...BuildOption) (*model.PortfolioResult, error) {
	cfg := &BuildConfig{
		MaxDepth: crawler.DefaultMaxDepth,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if maxDepth > 0 {
		cfg.MaxDepth = maxDepth
	}

	rebuilt := make([]BuildOption, 0, len(opts)+1)
	rebuilt = append(rebuilt, opts...)
	rebuilt = append(rebuilt, WithBuildMaxDepth(cfg.MaxDepth))

	p := DefaultPipeline(source, enricher, nil, rebuilt...)
	state := NewState(seed, cfg.MaxDepth)

	if err := p.Execute(ctx, state); err != nil {
		return nil, err
	}
	return state.Report.Result, nil
}
