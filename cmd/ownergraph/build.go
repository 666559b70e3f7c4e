package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/propfolio/ownergraph/internal/config"
	"github.com/propfolio/ownergraph/internal/crawler"
	"github.com/propfolio/ownergraph/internal/database"
	"github.com/propfolio/ownergraph/internal/hpd"
	"github.com/propfolio/ownergraph/internal/log"
	"github.com/propfolio/ownergraph/internal/model"
	"github.com/propfolio/ownergraph/internal/pipeline"
	"github.com/propfolio/ownergraph/internal/report"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [bbl...]",
		Short: "Build the ownership portfolio around a seed parcel",
		Long: `Build crawls housing registration records outward from one or more
seed parcels and assembles the connected ownership portfolio.

A parcel is identified by its BBL (borough-block-lot), written as
"1-868-1", "1/868/1", or "1.868.1". Borough is 1-5 (Manhattan,
Bronx, Brooklyn, Queens, Staten Island).

The crawl alternates between two expansions: a building's registration
yields its officers, agents, and their business addresses; a contact
name or shared address yields the other buildings it is registered on.
Each --depth round widens the portfolio by one such hop.

Examples:
  # Build the portfolio around one building
  ownergraph build 1-868-1

  # Build several portfolios concurrently
  ownergraph build 1-868-1 3-1772-25 2-2893-7

  # Read seed parcels from a file (one BBL per line, # for comments)
  ownergraph build --list parcels.txt

  # Wider crawl with a longer deadline
  ownergraph build --depth 3 --deadline 5m 1-868-1

  # Output JSON report to a file
  ownergraph build --json -o report.json 1-868-1

  # Use a Socrata app token to avoid throttling
  ownergraph build --app-token YOUR_TOKEN 1-868-1`,
		Args: cobra.ArbitraryArgs,
		RunE: runBuildCmd,
	}

	// API access flags
	cmd.Flags().StringP("app-token", "a", "",
		"Socrata application token (anonymous requests are throttled)")
	cmd.Flags().String("base-url", "",
		"Override the open-data API host (mostly for mirrors and testing)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout for open-data API calls")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Number of crawl expansion rounds")
	cmd.Flags().DurationP("deadline", "D", config.DefaultDeadline,
		"Wall-clock limit for one crawl; partial results are kept (0 disables)")

	// Batch building flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent builds")
	cmd.Flags().StringP("list", "l", "",
		"File with seed BBLs, one per line")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ownergraph in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Persistence flags
	cmd.Flags().Bool("no-save", false,
		"Do not save build results to the history database")

	return cmd
}

// runBuildCmd executes the build command.
func runBuildCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with sensitive-value masking
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runBuild(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
// Precedence is defaults < config file < flags: the file is applied
// first and explicitly set flags overwrite it afterwards.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load settings from the config file, if one is found.
	// If the user explicitly specified a path, a missing file is an error;
	// otherwise discovery failure just means defaults.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.FileConfig, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cfg.FileConfig.ApplyTo(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	// Flags override file settings only when the user actually set them.
	if cmd.Flags().Changed("app-token") {
		cfg.AppToken, err = cmd.Flags().GetString("app-token")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL, err = cmd.Flags().GetString("base-url")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("timeout") {
		cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("depth") {
		cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("deadline") {
		cfg.Deadline, err = cmd.Flags().GetDuration("deadline")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("batch") {
		cfg.BatchSize, err = cmd.Flags().GetInt("batch")
		if err != nil {
			return nil, err
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	// Collect seeds from positional arguments and the list file.
	cfg.Seeds = append(cfg.Seeds, args...)

	listFile, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}
	if listFile != "" {
		fromFile, err := readSeedList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Seeds = append(cfg.Seeds, fromFile...)
	}

	return cfg, nil
}

// readSeedList reads seed BBLs from a file, one per line.
// Blank lines and lines starting with # are skipped.
func readSeedList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open seed list: %w", err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed list: %w", err)
	}

	return seeds, nil
}

// parseSeeds validates and canonicalizes all configured seed strings.
func parseSeeds(raw []string) ([]model.BBL, error) {
	seeds := make([]model.BBL, 0, len(raw))
	for _, s := range raw {
		bbl, err := model.ParseBBL(s)
		if err != nil {
			return nil, fmt.Errorf("invalid seed parcel %q: %w", s, err)
		}
		seeds = append(seeds, bbl)
	}
	return seeds, nil
}

// runBuild executes the portfolio builds.
func runBuild(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	seeds, err := parseSeeds(cfg.Seeds)
	if err != nil {
		return err
	}

	logger.Info("starting build",
		"seeds", len(seeds),
		"depth", cfg.MaxDepth,
		"deadline", cfg.Deadline,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.PortfolioDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	client := newDataClient(cfg)

	// Use batch processor for parallel building if multiple seeds
	if len(seeds) > 1 && cfg.BatchSize > 1 {
		return runBatchBuild(ctx, cfg, client, db, logger, seeds)
	}

	return runSequentialBuild(ctx, cfg, client, db, logger, seeds)
}

// newDataClient creates the open-data API client from the configuration.
func newDataClient(cfg *config.Config) *hpd.Client {
	opts := []hpd.Option{
		hpd.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.AppToken != "" {
		opts = append(opts, hpd.WithAppToken(cfg.AppToken))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, hpd.WithBaseURL(cfg.BaseURL))
	}
	if cfg.FileConfig != nil {
		opts = append(opts, hpd.WithDatasets(hpd.Datasets{
			Registrations: cfg.FileConfig.Datasets.Registrations,
			Contacts:      cfg.FileConfig.Datasets.Contacts,
			Pluto:         cfg.FileConfig.Datasets.Pluto,
		}))
	}
	return hpd.NewClient(opts...)
}

// createBuildPipeline creates a pipeline wired with the configured crawl
// caps, deadline, and persistence backend.
func createBuildPipeline(client *hpd.Client, cfg *config.Config, db *database.PortfolioDB, logger *slog.Logger) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}

	buildOpts := []pipeline.BuildOption{
		pipeline.WithBuildMaxDepth(cfg.MaxDepth),
		pipeline.WithBuildDeadline(cfg.Deadline),
		pipeline.WithBuildLogger(logger),
		pipeline.WithBuildCrawlerOptions(
			crawler.WithPropertyTasksPerRound(cfg.PropertyTasksPerRound),
			crawler.WithNameTasksPerRound(cfg.NameTasksPerRound),
			crawler.WithSharedAddressesPerName(cfg.SharedAddressesPerName),
			crawler.WithRegistrationBatchSize(cfg.RegistrationBatchSize),
			crawler.WithLogger(logger),
		),
	}
	// A nil *PortfolioDB must not become a non-nil Saver interface.
	if db != nil {
		buildOpts = append(buildOpts, pipeline.WithBuildSaver(db))
	}

	return pipeline.DefaultPipeline(client, client, pipelineOpts, buildOpts...)
}

// runSequentialBuild builds portfolios one at a time.
func runSequentialBuild(ctx context.Context, cfg *config.Config, client *hpd.Client, db *database.PortfolioDB, logger *slog.Logger, seeds []model.BBL) error {
	for _, seed := range seeds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := createBuildPipeline(client, cfg, db, logger)
		state := pipeline.NewState(seed, cfg.MaxDepth)

		fmt.Printf("Building portfolio for %s (%s)...\n", seed.Key(), seed.BoroughName())
		startTime := time.Now()

		if err := p.Execute(ctx, state); err != nil {
			logger.Error("build failed", "seed", seed.Key(), "error", err)
			fmt.Fprintf(os.Stderr, "Build error for %s: %v\n", seed.Key(), err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Build completed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, state.Report); err != nil {
			logger.Error("report failed", "seed", seed.Key(), "error", err)
		}
	}

	return nil
}

// runBatchBuild builds multiple portfolios concurrently using BatchProcessor.
func runBatchBuild(ctx context.Context, cfg *config.Config, client *hpd.Client, db *database.PortfolioDB, logger *slog.Logger, seeds []model.BBL) error {
	fmt.Printf("Starting batch build of %d seed parcels (concurrency: %d)...\n\n",
		len(seeds), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return createBuildPipeline(client, cfg, db, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchMaxDepth(cfg.MaxDepth),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(rep *model.PortfolioReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Build completed: %s\n", index+1, len(seeds), rep.Seed)

		if err := outputReport(cfg, rep); err != nil {
			logger.Error("report failed", "seed", rep.Seed, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch build completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// outputReport outputs the portfolio report in the requested format.
func outputReport(cfg *config.Config, rep *model.PortfolioReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Owner-only permissions; portfolio reports name real people
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(rep)
	return err
}
