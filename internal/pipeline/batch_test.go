package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/propfolio/ownergraph/internal/model"
)

func batchSeeds() []model.BBL {
	return []model.BBL{
		model.MustNewBBL(1, 10, 1),
		model.MustNewBBL(2, 20, 2),
		model.MustNewBBL(3, 30, 3),
	}
}

// TestProcessBatch tests concurrent portfolio building.
func TestProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("builds every seed and keeps order", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&recordingStep{name: "noop"})
			return p
		}

		bp := NewBatchProcessor(factory,
			WithBatchLogger(quietLogger()),
			WithConcurrency(2),
			WithBatchMaxDepth(2),
		)

		seeds := batchSeeds()
		reports, err := bp.ProcessBatch(context.Background(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(reports) != len(seeds) {
			t.Fatalf("expected %d reports, got %d", len(seeds), len(reports))
		}
		for i, report := range reports {
			if report == nil {
				t.Fatalf("report %d missing", i)
			}
			if report.Seed != seeds[i].Key() {
				t.Errorf("report %d out of order: %q", i, report.Seed)
			}
			if report.MaxDepth != 2 {
				t.Errorf("report %d depth not recorded: %d", i, report.MaxDepth)
			}
		}
	})

	t.Run("failed builds still produce reports", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&recordingStep{name: "failing", err: context.DeadlineExceeded})
			return p
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(quietLogger()))
		reports, err := bp.ProcessBatch(context.Background(), batchSeeds())
		if err != nil {
			t.Fatalf("build failures must not fail the batch: %v", err)
		}
		for i, report := range reports {
			if report == nil {
				t.Fatalf("report %d missing", i)
			}
			if report.ErrorMessage == "" {
				t.Errorf("report %d should carry the build error", i)
			}
		}
	})
}

// TestProcessBatchWithCallback tests the streaming variant.
func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New(WithLogger(quietLogger()))
		p.AddStep(&recordingStep{name: "noop"})
		return p
	}

	bp := NewBatchProcessor(factory, WithBatchLogger(quietLogger()))

	var mu sync.Mutex
	got := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), batchSeeds(), func(report *model.PortfolioReport, index int) {
		mu.Lock()
		got[index] = report.Seed
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 callbacks, got %d", len(got))
	}
	if got[0] != "1-10-1" || got[2] != "3-30-3" {
		t.Errorf("unexpected callback results %v", got)
	}
}
