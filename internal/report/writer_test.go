package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/propfolio/ownergraph/internal/model"
)

func sampleReport() *model.PortfolioReport {
	return &model.PortfolioReport{
		Seed:      "1-10-1",
		DateBuilt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		MaxDepth:  2,
		Result: &model.PortfolioResult{
			Properties: []model.PropertySummary{
				{
					BBL:           "3-20-2",
					Borough:       "Brooklyn",
					Address:       "20 COURT ST",
					Units:         40,
					AssessedValue: 9000000,
					ConnectedVia:  []string{"ABC REALTY LLC"},
				},
				{
					BBL:           "1-10-1",
					Borough:       "Manhattan",
					Address:       "100 BROADWAY",
					Zip:           "10005",
					OwnerName:     "ABC REALTY LLC",
					AssessedValue: 1000000,
				},
			},
			People: []model.OwnerSummary{
				{Name: "JANE DOE", PropertyCount: 1, Roles: []string{"Agent"}},
			},
			Entities: []model.OwnerSummary{
				{Name: "ABC REALTY LLC", PropertyCount: 2, Roles: []string{"Head Officer"}, Addresses: []string{"123 MAIN ST"}},
			},
			CommonAddresses: []model.AddressSummary{
				{Address: "123 MAIN ST", LinkCount: 3},
			},
			Graph: model.GraphStats{NodeCount: 5, EdgeCount: 5, RoundsRun: 2},
		},
		PerformedSteps: []string{"crawl", "extract", "aggregate"},
	}
}

// TestSimpleWriter tests the plain-text format.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes all sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		n, err := w.Write(sampleReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"OWNERSHIP PORTFOLIO",
			"Seed Parcel:    1-10-1",
			"PROPERTIES (2)",
			"3-20-2",
			"ABC REALTY LLC (2 properties)",
			"JANE DOE",
			"123 MAIN ST (3 links)",
			"Connected Via: ABC REALTY LLC",
			"Status:         Complete",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("properties sort order preserved", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if strings.Index(out, "3-20-2") > strings.Index(out, "100 BROADWAY") {
			t.Error("higher-valued property should be listed first")
		}
	})

	t.Run("timed out status", func(t *testing.T) {
		t.Parallel()

		report := sampleReport()
		report.TimedOut = true

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "TIMED OUT") {
			t.Error("timed-out status missing")
		}
	})

	t.Run("empty sections hidden by default", func(t *testing.T) {
		t.Parallel()

		report := sampleReport()
		report.Result.CommonAddresses = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "COMMON ADDRESSES") {
			t.Error("empty section should be hidden")
		}
	})
}

// TestJSONWriter tests the JSON format.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("round-trips through json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.PortfolioReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Seed != "1-10-1" || decoded.Result == nil {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
		if len(decoded.Result.Properties) != 2 {
			t.Errorf("properties lost in serialization: %+v", decoded.Result.Properties)
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"seed\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Version != "1.2.3" || decoded.Report == nil {
			t.Errorf("unexpected wrapper %+v", decoded)
		}
	})
}

// TestMarkdownWriter tests the Markdown format.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Ownership Portfolio",
		"## Properties",
		"## People",
		"## Entities",
		"## Common Addresses",
		"`3-20-2`",
		"ABC REALTY LLC",
		"123 MAIN ST",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

// failWriter always fails.
type failWriter struct{}

func (failWriter) Write(_ *model.PortfolioReport) (int, error) {
	return 0, errors.New("broken pipe")
}

// TestMultiWriter tests fan-out behavior.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b))

		if _, err := mw.Write(sampleReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("both writers should receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failWriter{}, NewSimpleWriter(&after))

		if _, err := mw.Write(sampleReport()); err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("writers after a failure should not run")
		}
	})
}

// TestTruncateString tests table-cell truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := truncateString("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncateString("a very long string indeed", 10); got != "a very ..." {
		t.Errorf("unexpected %q", got)
	}
	if got := truncateString("abcdef", 3); got != "abc" {
		t.Errorf("unexpected %q", got)
	}
}
