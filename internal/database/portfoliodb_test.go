package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/propfolio/ownergraph/internal/model"
)

func openTestDB(t *testing.T) *PortfolioDB {
	t.Helper()

	pdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := pdb.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return pdb
}

func testReport(seed string, properties int) *model.PortfolioReport {
	result := &model.PortfolioResult{
		Properties:      make([]model.PropertySummary, 0, properties),
		People:          []model.OwnerSummary{{Name: "JANE DOE", PropertyCount: properties}},
		Entities:        []model.OwnerSummary{},
		CommonAddresses: []model.AddressSummary{},
		Graph:           model.GraphStats{NodeCount: properties + 1, EdgeCount: properties, RoundsRun: 2},
	}
	for i := range properties {
		result.Properties = append(result.Properties, model.PropertySummary{
			BBL:     seed,
			Borough: "Manhattan",
			Units:   i + 1,
		})
	}
	return &model.PortfolioReport{
		Seed:      seed,
		DateBuilt: time.Now().UTC(),
		MaxDepth:  2,
		Result:    result,
	}
}

// TestOpen tests database creation behavior.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database and directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested")
		pdb, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := pdb.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	t.Run("refuses missing database without create option", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})
}

// TestSaveAndLoad tests the round trip through SQLite.
func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	pdb := openTestDB(t)
	ctx := context.Background()

	if err := pdb.SavePortfolio(ctx, testReport("1-10-1", 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := pdb.GetLatestReport(ctx, "1-10-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a report")
	}
	if loaded.Seed != "1-10-1" || loaded.MaxDepth != 2 {
		t.Errorf("unexpected report %+v", loaded)
	}
	if loaded.PropertyCount() != 2 {
		t.Errorf("expected 2 properties, got %d", loaded.PropertyCount())
	}
}

// TestGetLatestReport tests that the newest build wins.
func TestGetLatestReport(t *testing.T) {
	t.Parallel()

	pdb := openTestDB(t)
	ctx := context.Background()

	if err := pdb.SavePortfolio(ctx, testReport("1-10-1", 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pdb.SavePortfolio(ctx, testReport("1-10-1", 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := pdb.GetLatestReport(ctx, "1-10-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.PropertyCount() != 3 {
		t.Errorf("expected the later build, got %d properties", loaded.PropertyCount())
	}

	missing, err := pdb.GetLatestReport(ctx, "9-99-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("unknown parcel should return nil")
	}
}

// TestListSeeds tests seed enumeration.
func TestListSeeds(t *testing.T) {
	t.Parallel()

	pdb := openTestDB(t)
	ctx := context.Background()

	for _, seed := range []string{"2-20-2", "1-10-1", "2-20-2"} {
		if err := pdb.SavePortfolio(ctx, testReport(seed, 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	seeds, err := pdb.ListSeeds(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seeds) != 2 || seeds[0] != "1-10-1" || seeds[1] != "2-20-2" {
		t.Errorf("unexpected seeds %v", seeds)
	}
}

// TestGetHistory tests full-history retrieval.
func TestGetHistory(t *testing.T) {
	t.Parallel()

	pdb := openTestDB(t)
	ctx := context.Background()

	for range 3 {
		if err := pdb.SavePortfolio(ctx, testReport("1-10-1", 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := pdb.GetHistory(ctx, "1-10-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("expected 3 builds, got %d", len(history))
	}
}

// TestGetHistoryWithMetadata tests the lightweight history view.
func TestGetHistoryWithMetadata(t *testing.T) {
	t.Parallel()

	pdb := openTestDB(t)
	ctx := context.Background()

	if err := pdb.SavePortfolio(ctx, testReport("3-30-3", 4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metas, err := pdb.GetHistoryWithMetadata(ctx, "3-30-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 build, got %d", len(metas))
	}

	meta := metas[0]
	if meta.Seed != "3-30-3" || meta.MaxDepth != 2 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Summary["properties"] != 4 || meta.Summary["owners"] != 1 {
		t.Errorf("unexpected summary %v", meta.Summary)
	}
	if meta.Timestamp.IsZero() {
		t.Error("timestamp should be populated")
	}
}

// TestGetReportByID tests lookup by database id.
func TestGetReportByID(t *testing.T) {
	t.Parallel()

	pdb := openTestDB(t)
	ctx := context.Background()

	if err := pdb.SavePortfolio(ctx, testReport("1-10-1", 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metas, err := pdb.GetHistoryWithMetadata(ctx, "1-10-1")
	if err != nil || len(metas) != 1 {
		t.Fatalf("metadata lookup failed: %v", err)
	}

	loaded, err := pdb.GetReportByID(ctx, metas[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil || loaded.Seed != "1-10-1" {
		t.Errorf("unexpected report %+v", loaded)
	}

	missing, err := pdb.GetReportByID(ctx, 9999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("unknown id should return nil")
	}
}

// TestParseTimestamp tests the multi-format fallback.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	cases := []string{
		"2026-08-01 12:30:00",
		"2026-08-01T12:30:00Z",
		"2026-08-01T12:30:00",
	}
	for _, s := range cases {
		if parseTimestamp(s).IsZero() {
			t.Errorf("failed to parse %q", s)
		}
	}

	if !parseTimestamp("not a time").IsZero() {
		t.Error("garbage input should yield zero time")
	}
}
