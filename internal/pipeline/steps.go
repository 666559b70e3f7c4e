package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/propfolio/ownergraph/internal/aggregate"
	"github.com/propfolio/ownergraph/internal/crawler"
	"github.com/propfolio/ownergraph/internal/graph"
	"github.com/propfolio/ownergraph/internal/model"
)

// CrawlStep walks HPD registrations outward from the seed parcel and
// builds the full ownership graph.
//
// Design decision: Crawling is a separate step because:
// 1. It is the only step that talks to the registration datasets
// 2. It has its own configuration (depth, per-round caps, deadline)
// 3. A timed-out crawl still yields a usable partial graph
type CrawlStep struct {
	// source supplies registration and contact records.
	source crawler.DataSource

	// crawlerOpts configure the crawler built for each run.
	crawlerOpts []crawler.CrawlerOption

	// deadline bounds the whole crawl. Zero means no deadline.
	deadline time.Duration

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlerOptions passes options through to the underlying crawler.
func WithCrawlerOptions(opts ...crawler.CrawlerOption) CrawlStepOption {
	return func(s *CrawlStep) {
		s.crawlerOpts = append(s.crawlerOpts, opts...)
	}
}

// WithCrawlDeadline bounds the crawl's total wall-clock time.
// When the deadline expires the graph built so far is kept and the
// report is marked as timed out. Zero disables the deadline.
func WithCrawlDeadline(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.deadline = d
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawl step backed by the given source.
func NewCrawlStep(source crawler.DataSource, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		source: source,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
// A crawl cut short by the deadline is not a failure: the partial graph
// is kept and the report is marked timed out so downstream steps can
// still summarize what was found.
func (s *CrawlStep) Do(ctx context.Context, state *State) error {
	if s.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deadline)
		defer cancel()
	}

	opts := append([]crawler.CrawlerOption{crawler.WithLogger(s.logger)}, s.crawlerOpts...)
	c := crawler.New(s.source, opts...)

	store, rounds, err := c.Crawl(ctx, state.Seed)
	state.Graph = store
	state.RoundsRun = rounds

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.Warn("crawl cut short, keeping partial graph",
				"seed", state.Seed.Key(),
				"rounds_run", rounds,
				"reason", err,
			)
			state.Report.TimedOut = true
			return nil
		}
		return fmt.Errorf("crawl %s: %w", state.Seed.Key(), err)
	}

	s.logger.Info("crawl completed",
		"seed", state.Seed.Key(),
		"rounds_run", rounds,
		"nodes", store.NodeCount(),
		"edges", store.EdgeCount(),
	)

	return nil
}

// ExtractStep isolates the seed's connected component from the full
// crawled graph. Nodes reached only through other branches never make
// it into the portfolio.
type ExtractStep struct {
	logger *slog.Logger
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithExtractLogger sets a custom logger for the extract step.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		s.logger = logger
	}
}

// NewExtractStep creates a new component extraction step.
func NewExtractStep(opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{logger: slog.Default()}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the component extraction step.
func (s *ExtractStep) Do(_ context.Context, state *State) error {
	if state.Graph == nil {
		return errors.New("extract: no graph to extract from")
	}

	state.Component = graph.ExtractComponent(state.Graph, model.PropertyNodeID(state.Seed))

	s.logger.Debug("component extracted",
		"seed", state.Seed.Key(),
		"nodes", len(state.Component.Nodes),
		"edges", len(state.Component.Edges),
	)

	return nil
}

// AggregateStep distills the extracted component into the final
// portfolio result, enriching properties from the assessment roll.
type AggregateStep struct {
	aggregator *aggregate.Aggregator
	logger     *slog.Logger
}

// AggregateStepOption configures an AggregateStep.
type AggregateStepOption func(*AggregateStep)

// WithAggregateLogger sets a custom logger for the aggregate step.
func WithAggregateLogger(logger *slog.Logger) AggregateStepOption {
	return func(s *AggregateStep) {
		s.logger = logger
	}
}

// NewAggregateStep creates a new aggregation step. The enricher may be
// nil, in which case properties keep zeroed assessment fields.
func NewAggregateStep(enricher aggregate.Enricher, opts ...AggregateStepOption) *AggregateStep {
	s := &AggregateStep{logger: slog.Default()}

	for _, opt := range opts {
		opt(s)
	}

	s.aggregator = aggregate.New(enricher, aggregate.WithLogger(s.logger))
	return s
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do executes the aggregation step.
func (s *AggregateStep) Do(ctx context.Context, state *State) error {
	if state.Component == nil {
		return errors.New("aggregate: no component to summarize")
	}

	state.Report.Result = s.aggregator.Aggregate(ctx, state.Component, state.RoundsRun)

	s.logger.Info("portfolio assembled",
		"seed", state.Seed.Key(),
		"properties", len(state.Report.Result.Properties),
		"people", len(state.Report.Result.People),
		"entities", len(state.Report.Result.Entities),
	)

	return nil
}

// Saver persists a finished portfolio report.
type Saver interface {
	SavePortfolio(ctx context.Context, report *model.PortfolioReport) error
}

// SaveStep persists the finished report through a Saver.
// A nil saver makes the step a no-op, which keeps the default pipeline
// usable without any storage configured.
type SaveStep struct {
	saver  Saver
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a new persistence step.
func NewSaveStep(saver Saver, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		saver:  saver,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do executes the save step.
func (s *SaveStep) Do(ctx context.Context, state *State) error {
	if s.saver == nil {
		s.logger.Debug("skipping save, no storage configured")
		return nil
	}
	if state.Report.Result == nil {
		s.logger.Debug("skipping save, no result to persist")
		return nil
	}

	if err := s.saver.SavePortfolio(ctx, state.Report); err != nil {
		return fmt.Errorf("save portfolio %s: %w", state.Seed.Key(), err)
	}

	s.logger.Debug("portfolio saved", "seed", state.Seed.Key())
	return nil
}
