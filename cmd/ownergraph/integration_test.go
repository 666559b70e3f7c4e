package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/propfolio/ownergraph/internal/config"
	"github.com/propfolio/ownergraph/internal/database"
	"github.com/propfolio/ownergraph/internal/model"
)

// newStubDataServer serves a tiny two-building ownership network in the
// Socrata wire format: the seed 1-868-1 is registered to ABC REALTY LLC,
// which is also registered on 2-100-1.
func newStubDataServer(t *testing.T) *httptest.Server {
	t.Helper()

	registration := func(id, boro, block, lot, house, street string) map[string]string {
		return map[string]string{
			"registrationid": id,
			"boroid":         boro,
			"block":          block,
			"lot":            lot,
			"housenumber":    house,
			"streetname":     street,
		}
	}
	contact := func(regID string) map[string]string {
		return map[string]string{
			"registrationid":      regID,
			"type":                "CorporateOwner",
			"corporationname":     "ABC REALTY LLC",
			"businesshousenumber": "123",
			"businessstreetname":  "MAIN ST",
			"businesscity":        "NEW YORK",
			"businessstate":       "NY",
			"businesszip":         "10001",
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/resource/", func(w http.ResponseWriter, r *http.Request) {
		dataset := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/resource/"), ".json")
		q := r.URL.Query()
		where := q.Get("$where")

		var rows []map[string]string
		switch dataset {
		case "tesw-yqqr": // registrations
			switch {
			case q.Get("boroid") == "1" && q.Get("block") == "868" && q.Get("lot") == "1":
				rows = []map[string]string{registration("R100", "1", "868", "1", "350", "W 42 ST")}
			case strings.Contains(where, "R200"):
				rows = []map[string]string{registration("R200", "2", "100", "1", "5", "GRAND CONCOURSE")}
			}
		case "feu5-w2e2": // contacts
			switch {
			case q.Get("registrationid") == "R100":
				rows = []map[string]string{contact("R100")}
			case q.Get("registrationid") == "R200":
				rows = []map[string]string{contact("R200")}
			case strings.Contains(where, "ABC REALTY"):
				rows = []map[string]string{contact("R100"), contact("R200")}
			}
		case "64uk-42ks": // pluto
			switch {
			case strings.Contains(where, "'1'"):
				rows = []map[string]string{{
					"borocode": "1", "block": "868", "lot": "1",
					"address": "350 W 42 ST", "ownername": "ABC REALTY LLC",
					"unitsres": "40", "assesstot": "1500000",
				}}
			case strings.Contains(where, "'2'"):
				rows = []map[string]string{{
					"borocode": "2", "block": "100", "lot": "1",
					"address": "5 GRAND CONCOURSE", "ownername": "ABC REALTY LLC",
					"unitsres": "12", "assesstot": "800000",
				}}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if rows == nil {
			rows = []map[string]string{}
		}
		if err := json.NewEncoder(w).Encode(rows); err != nil {
			t.Errorf("failed to encode stub response: %v", err)
		}
	})

	return httptest.NewServer(mux)
}

// quietLogger discards all log output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// readReportFile decodes a JSON report file written by the build.
func readReportFile(t *testing.T, path string) *model.PortfolioReport {
	t.Helper()

	content, err := os.ReadFile(path) //nolint:gosec // test-owned temp path
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}

	var wrapper struct {
		Version string                 `json:"version"`
		Report  *model.PortfolioReport `json:"report"`
	}
	if err := json.Unmarshal(content, &wrapper); err != nil {
		t.Fatalf("failed to parse report JSON: %v", err)
	}
	if wrapper.Report == nil {
		t.Fatal("expected report in JSON wrapper")
	}
	return wrapper.Report
}

// TestRunBuildEndToEnd runs a full build against a stub open-data server.
func TestRunBuildEndToEnd(t *testing.T) {
	server := newStubDataServer(t)
	defer server.Close()

	tmpDir := t.TempDir()
	reportPath := filepath.Join(tmpDir, "report.json")

	cfg := config.NewConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 5 * time.Second
	cfg.MaxDepth = 2
	cfg.Deadline = 30 * time.Second
	cfg.BatchSize = 1
	cfg.Seeds = []string{"1-868-1"}
	cfg.JSONReport = true
	cfg.ReportFile = reportPath
	cfg.SaveToDB = true
	cfg.DBDir = filepath.Join(tmpDir, "db")

	if err := runBuild(context.Background(), cfg, quietLogger()); err != nil {
		t.Fatalf("runBuild() error = %v", err)
	}

	rep := readReportFile(t, reportPath)

	t.Run("portfolio contains both linked buildings", func(t *testing.T) {
		if rep.Seed != "1-868-1" {
			t.Errorf("expected seed '1-868-1', got %q", rep.Seed)
		}
		if rep.Result == nil {
			t.Fatal("expected non-nil result")
		}
		if len(rep.Result.Properties) != 2 {
			t.Fatalf("expected 2 properties, got %d", len(rep.Result.Properties))
		}
		// Sorted descending by assessed value.
		if rep.Result.Properties[0].BBL != "1-868-1" {
			t.Errorf("expected 1-868-1 first, got %s", rep.Result.Properties[0].BBL)
		}
		if rep.Result.Properties[1].BBL != "2-100-1" {
			t.Errorf("expected 2-100-1 second, got %s", rep.Result.Properties[1].BBL)
		}
	})

	t.Run("enrichment applied", func(t *testing.T) {
		if rep.Result.Properties[0].AssessedValue != 1500000 {
			t.Errorf("expected assessed value 1500000, got %.0f", rep.Result.Properties[0].AssessedValue)
		}
		if rep.Result.Properties[0].Address != "350 W 42 ST" {
			t.Errorf("expected enriched address, got %q", rep.Result.Properties[0].Address)
		}
	})

	t.Run("entity and shared address found", func(t *testing.T) {
		if len(rep.Result.Entities) != 1 || rep.Result.Entities[0].Name != "ABC REALTY LLC" {
			t.Fatalf("expected entity ABC REALTY LLC, got %v", rep.Result.Entities)
		}
		if rep.Result.Entities[0].PropertyCount != 2 {
			t.Errorf("expected property count 2, got %d", rep.Result.Entities[0].PropertyCount)
		}
	})

	t.Run("build saved to database", func(t *testing.T) {
		db, err := database.Open(cfg.DBDir, database.Options{})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		saved, err := db.GetLatestReport(context.Background(), "1-868-1")
		if err != nil {
			t.Fatalf("failed to load saved report: %v", err)
		}
		if saved == nil {
			t.Fatal("expected saved report")
		}
		if saved.PropertyCount() != 2 {
			t.Errorf("expected 2 saved properties, got %d", saved.PropertyCount())
		}
	})
}

// TestRunBuildEmptyPortfolio runs a build whose seed has no filings.
func TestRunBuildEmptyPortfolio(t *testing.T) {
	server := newStubDataServer(t)
	defer server.Close()

	reportPath := filepath.Join(t.TempDir(), "report.json")

	cfg := config.NewConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 5 * time.Second
	cfg.Seeds = []string{"5-1-1"}
	cfg.JSONReport = true
	cfg.ReportFile = reportPath
	cfg.SaveToDB = false

	if err := runBuild(context.Background(), cfg, quietLogger()); err != nil {
		t.Fatalf("runBuild() error = %v", err)
	}

	rep := readReportFile(t, reportPath)

	if rep.Result == nil {
		t.Fatal("expected non-nil result even with no filings")
	}
	// The seed parcel itself is always part of the portfolio.
	if len(rep.Result.Properties) != 1 || rep.Result.Properties[0].BBL != "5-1-1" {
		t.Errorf("expected only the seed property, got %v", rep.Result.Properties)
	}
	if len(rep.Result.Entities) != 0 || len(rep.Result.People) != 0 {
		t.Error("expected no owners for an unregistered parcel")
	}
	if rep.TimedOut {
		t.Error("expected build not to time out")
	}
}

// TestRunBatchBuildEndToEnd builds two seeds concurrently against the stub.
func TestRunBatchBuildEndToEnd(t *testing.T) {
	server := newStubDataServer(t)
	defer server.Close()

	tmpDir := t.TempDir()

	cfg := config.NewConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 5 * time.Second
	cfg.MaxDepth = 2
	cfg.BatchSize = 2
	cfg.Seeds = []string{"1-868-1", "5-1-1"}
	cfg.SaveToDB = true
	cfg.DBDir = filepath.Join(tmpDir, "db")

	if err := runBuild(context.Background(), cfg, quietLogger()); err != nil {
		t.Fatalf("runBuild() error = %v", err)
	}

	db, err := database.Open(cfg.DBDir, database.Options{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	seeds, err := db.ListSeeds(context.Background())
	if err != nil {
		t.Fatalf("failed to list seeds: %v", err)
	}
	if len(seeds) != 2 {
		t.Errorf("expected 2 stored seeds, got %v", seeds)
	}
}
