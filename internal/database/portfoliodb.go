package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/propfolio/ownergraph/internal/model"
)

// PortfolioDB provides SQLite-based storage for finished portfolio
// reports. It manages connection pooling and provides methods for
// saving and querying build history.
//
// Design decision: We store one row per build rather than decomposing
// the portfolio into relational tables. The portfolio is a point-in-time
// snapshot; the interesting queries are "latest build for this parcel"
// and "how did it change over time", both of which work on whole reports.
type PortfolioDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures PortfolioDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a PortfolioDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*PortfolioDB, error) {
	dbPath := filepath.Join(dbDir, "ownergraph.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pdb := &PortfolioDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := pdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pdb, nil
}

// Close closes the database connection.
func (pdb *PortfolioDB) Close() error {
	return pdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (pdb *PortfolioDB) createTables() error {
	schema := `
	-- Portfolio builds store complete reports as JSON
	CREATE TABLE IF NOT EXISTS portfolio_builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bbl TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		max_depth INTEGER DEFAULT 0,
		report_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_builds_bbl ON portfolio_builds(bbl);
	CREATE INDEX IF NOT EXISTS idx_builds_timestamp ON portfolio_builds(timestamp);
	`

	_, err := pdb.db.ExecContext(context.Background(), schema)
	return err
}

// SavePortfolio saves a complete build report as JSON.
// It satisfies the pipeline's Saver interface.
func (pdb *PortfolioDB) SavePortfolio(ctx context.Context, report *model.PortfolioReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := map[string]int{
		"properties": report.PropertyCount(),
		"owners":     report.OwnerCount(),
	}
	if report.Result != nil {
		summary["common_addresses"] = len(report.Result.CommonAddresses)
		summary["nodes"] = report.Result.Graph.NodeCount
		summary["edges"] = report.Result.Graph.EdgeCount
	}
	summaryJSON, _ := json.Marshal(summary) //nolint:errcheck,errchkjson // summary is a simple map; Marshal won't fail

	query := `
	INSERT INTO portfolio_builds (bbl, max_depth, report_json, summary_json)
	VALUES (?, ?, ?, ?)
	`

	_, err = pdb.db.ExecContext(ctx, query,
		report.Seed,
		report.MaxDepth,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save portfolio report: %w", err)
	}

	return nil
}

// GetLatestReport retrieves the most recent build report for a parcel.
// Returns nil without error when the parcel has never been built.
func (pdb *PortfolioDB) GetLatestReport(ctx context.Context, bbl string) (*model.PortfolioReport, error) {
	query := `
	SELECT report_json FROM portfolio_builds
	WHERE bbl = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := pdb.db.QueryRowContext(ctx, query, bbl).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio report: %w", err)
	}

	var report model.PortfolioReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListSeeds returns every parcel that has at least one stored build.
func (pdb *PortfolioDB) ListSeeds(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT bbl FROM portfolio_builds
	ORDER BY bbl
	`

	rows, err := pdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var bbl string
		if err := rows.Scan(&bbl); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, bbl)
	}

	return seeds, rows.Err()
}

// GetHistory retrieves all build reports for a parcel, newest first.
func (pdb *PortfolioDB) GetHistory(ctx context.Context, bbl string) ([]*model.PortfolioReport, error) {
	query := `
	SELECT report_json FROM portfolio_builds
	WHERE bbl = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := pdb.db.QueryContext(ctx, query, bbl)
	if err != nil {
		return nil, fmt.Errorf("failed to get build history: %w", err)
	}
	defer rows.Close()

	var reports []*model.PortfolioReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.PortfolioReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// BuildMetadata contains summary information about a stored build.
// This is used for displaying build history without loading full reports.
type BuildMetadata struct {
	// ID is the unique identifier of the build in the database.
	ID int64

	// Seed is the parcel the build started from.
	Seed string

	// Timestamp is when the build was stored.
	Timestamp time.Time

	// MaxDepth is the round budget the build ran with.
	MaxDepth int

	// Summary contains counts of properties, owners, and addresses.
	Summary map[string]int
}

// GetHistoryWithMetadata retrieves build metadata for a parcel.
// This is more efficient than GetHistory when only metadata is needed.
func (pdb *PortfolioDB) GetHistoryWithMetadata(ctx context.Context, bbl string) ([]BuildMetadata, error) {
	query := `
	SELECT id, bbl, timestamp, max_depth, summary_json
	FROM portfolio_builds
	WHERE bbl = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := pdb.db.QueryContext(ctx, query, bbl)
	if err != nil {
		return nil, fmt.Errorf("failed to get build history: %w", err)
	}
	defer rows.Close()

	var results []BuildMetadata
	for rows.Next() {
		var meta BuildMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Seed, &timestamp, &meta.MaxDepth, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = make(map[string]int)
			}
		} else {
			meta.Summary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetReportByID retrieves a build report by its database ID.
func (pdb *PortfolioDB) GetReportByID(ctx context.Context, id int64) (*model.PortfolioReport, error) {
	query := `
	SELECT report_json FROM portfolio_builds
	WHERE id = ?
	`

	var reportJSON string
	err := pdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio report: %w", err)
	}

	var report model.PortfolioReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
