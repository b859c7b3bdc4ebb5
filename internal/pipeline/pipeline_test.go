package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nao1215/siteaudit/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, audit *Audit) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, audit *Audit) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, audit)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAudit() *Audit {
	return NewAudit("job-1", "https://example.com", model.CrawlOptions{MaxPages: 10, MaxDepth: 2})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("starts empty", func(t *testing.T) {
		t.Parallel()
		if p := New(); p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()
		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

		expected := []string{"first", "second", "third"}
		names := p.StepNames()
		if len(names) != len(expected) {
			t.Fatalf("expected %d names, got %d", len(expected), len(names))
		}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order, hooked []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *Audit) error {
				order = append(order, name)
				return nil
			}}
		}
		p := New(WithLogger(quietLogger()), WithStepHook(func(step string) { hooked = append(hooked, step) }))
		p.AddSteps(record("a"), record("b"), record("c"))

		audit := newTestAudit()
		if err := p.Execute(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, got := range [][]string{order, hooked, audit.Steps} {
			if len(got) != 3 || got[0] != "a" || got[2] != "c" {
				t.Errorf("unexpected order %v", got)
			}
		}
	})

	t.Run("stops at the first error", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("boom")
		failing := &mockStep{name: "fails", doFunc: func(context.Context, *Audit) error { return wantErr }}
		after := &mockStep{name: "after"}
		p := New(WithLogger(quietLogger()))
		p.AddSteps(failing, after)

		audit := newTestAudit()
		if err := p.Execute(context.Background(), audit); !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
		if len(audit.Steps) != 0 {
			t.Errorf("expected no completed steps, got %v", audit.Steps)
		}
	})

	t.Run("cancellation marks the result incomplete", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "first", doFunc: func(context.Context, *Audit) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}
		p := New(WithLogger(quietLogger()))
		p.AddSteps(first, second)

		audit := newTestAudit()
		if err := p.Execute(ctx, audit); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected the second step to be skipped")
		}
		if !audit.Result.Incomplete {
			t.Error("expected an incomplete result")
		}
	})
}
