package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/propfolio/ownergraph/internal/crawler"
	"github.com/propfolio/ownergraph/internal/hpd"
)

// Default configuration values.
// The crawl caps mirror the crawler package so there is one source of
// truth; the rest are chosen for the open-data API's characteristics.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ownergraph"

	// DefaultTimeout is the per-request timeout against the open-data
	// API. The API is usually fast but rate-limited, so this is generous
	// enough for a slow page without hanging a whole build.
	DefaultTimeout = hpd.DefaultTimeout

	// DefaultMaxDepth is the default number of crawl expansion rounds.
	// Two rounds reach the seed's contacts and the other buildings those
	// contacts are registered on, which is the portfolio most users want.
	DefaultMaxDepth = crawler.DefaultMaxDepth

	// DefaultPropertyTasksPerRound caps property lookups per round.
	DefaultPropertyTasksPerRound = crawler.DefaultPropertyTasksPerRound

	// DefaultNameTasksPerRound caps name searches per round.
	DefaultNameTasksPerRound = crawler.DefaultNameTasksPerRound

	// DefaultSharedAddressesPerName caps shared-address expansions per name.
	DefaultSharedAddressesPerName = crawler.DefaultSharedAddressesPerName

	// DefaultRegistrationBatchSize is the in-clause chunk size for
	// batched registration lookups.
	DefaultRegistrationBatchSize = crawler.DefaultRegistrationBatchSize

	// DefaultDeadline bounds one crawl's wall-clock time. Two minutes
	// comfortably fits a depth-2 crawl at the default caps even when the
	// API is slow; a crawl that runs longer is almost always stuck on
	// rate limiting and better cut short with partial results.
	DefaultDeadline = 2 * time.Minute

	// DefaultBatchSize of 4 concurrent builds balances throughput with
	// the open-data API's rate limits. Higher values mostly convert into
	// 429 responses rather than speed.
	DefaultBatchSize = 4
)

// Config holds all configuration options for ownergraph.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// AppToken is the Socrata application token sent with API requests.
	// Optional: anonymous requests work but are throttled aggressively.
	AppToken string

	// BaseURL is the open-data host. Overridable for testing and for
	// mirrored deployments; empty means the default host.
	BaseURL string

	// Timeout is the per-request timeout for open-data API calls.
	Timeout time.Duration

	// MaxDepth is the number of crawl expansion rounds.
	// Depth 1 fetches only the seed's own filings.
	MaxDepth int

	// PropertyTasksPerRound caps property lookups per crawl round.
	PropertyTasksPerRound int

	// NameTasksPerRound caps name searches per crawl round.
	NameTasksPerRound int

	// SharedAddressesPerName caps shared-address expansions per name.
	SharedAddressesPerName int

	// RegistrationBatchSize is the chunk size for batched registration
	// lookups.
	RegistrationBatchSize int

	// Deadline bounds one crawl's wall-clock time. Zero disables it.
	Deadline time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of concurrent builds when processing
	// multiple seed parcels.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .ownergraph in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// FileConfig holds settings loaded from the config file.
	// This is populated by LoadConfigFile.
	FileConfig *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Seeds is the list of seed parcels to build, in any BBL form the
	// parser accepts ("1-10-1", "1/10/1", "1.10.1").
	Seeds []string

	// DBDir is the directory path for storing the SQLite database.
	// When set, build results are saved for historical comparison.
	// When empty, build results are not persisted.
	// Defaults to XDG data directory (~/.local/share/ownergraph on Linux).
	DBDir string

	// SaveToDB indicates whether to save build results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, crawl caps).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:                DefaultTimeout,
		MaxDepth:               DefaultMaxDepth,
		PropertyTasksPerRound:  DefaultPropertyTasksPerRound,
		NameTasksPerRound:      DefaultNameTasksPerRound,
		SharedAddressesPerName: DefaultSharedAddressesPerName,
		RegistrationBatchSize:  DefaultRegistrationBatchSize,
		Deadline:               DefaultDeadline,
		BatchSize:              DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for ownergraph.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/ownergraph
// On macOS: ~/Library/Application Support/ownergraph
// On Windows: %LOCALAPPDATA%\ownergraph
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ownergraph.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for ownergraph.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any building begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxDepth <= 0 {
		return ErrInvalidMaxDepth
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// Zero disables the deadline; negative makes no sense
	if c.Deadline < 0 {
		return ErrInvalidDeadline
	}

	return nil
}
