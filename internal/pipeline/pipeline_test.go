package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/propfolio/ownergraph/internal/model"
)

// recordingStep records invocations and optionally fails.
type recordingStep struct {
	name   string
	err    error
	called int
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Do(_ context.Context, _ *State) error {
	s.called++
	return s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPipelineExecute tests step orchestration.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order and records them", func(t *testing.T) {
		t.Parallel()

		first := &recordingStep{name: "first"}
		second := &recordingStep{name: "second"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(first, second)

		state := NewState(model.MustNewBBL(1, 10, 1), 2)
		if err := p.Execute(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if first.called != 1 || second.called != 1 {
			t.Errorf("expected each step to run once, got %d and %d", first.called, second.called)
		}
		if len(state.Report.PerformedSteps) != 2 || state.Report.PerformedSteps[0] != "first" {
			t.Errorf("unexpected performed steps %v", state.Report.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &recordingStep{name: "failing", err: boom}
		after := &recordingStep{name: "after"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(failing, after)

		state := NewState(model.MustNewBBL(1, 10, 1), 2)
		err := p.Execute(context.Background(), state)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if after.called != 0 {
			t.Error("step after failure should not run")
		}
		if state.Report.ErrorMessage != "boom" {
			t.Errorf("error not recorded in report: %q", state.Report.ErrorMessage)
		}
	})

	t.Run("continues past errors when configured", func(t *testing.T) {
		t.Parallel()

		failing := &recordingStep{name: "failing", err: errors.New("boom")}
		after := &recordingStep{name: "after"}

		p := New(WithLogger(quietLogger()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		state := NewState(model.MustNewBBL(1, 10, 1), 2)
		if err := p.Execute(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.called != 1 {
			t.Error("later step should still run")
		}
	})

	t.Run("cancelled context marks report timed out", func(t *testing.T) {
		t.Parallel()

		step := &recordingStep{name: "never"}
		p := New(WithLogger(quietLogger()))
		p.AddStep(step)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		state := NewState(model.MustNewBBL(1, 10, 1), 2)
		err := p.Execute(ctx, state)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !state.Report.TimedOut {
			t.Error("report should be marked timed out")
		}
		if step.called != 0 {
			t.Error("step should not run after cancellation")
		}
	})
}

// TestStepNames tests pipeline introspection.
func TestStepNames(t *testing.T) {
	t.Parallel()

	p := New(WithLogger(quietLogger()))
	p.AddSteps(&recordingStep{name: "a"}, &recordingStep{name: "b"})

	if p.StepCount() != 2 {
		t.Errorf("expected 2 steps, got %d", p.StepCount())
	}
	names := p.StepNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names %v", names)
	}
}
