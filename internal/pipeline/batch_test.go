package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitearchive/internal/model"
)

// stepFunc adapts a function to the Step interface.
type stepFunc func(ctx context.Context, report *model.SessionReport) error

func (f stepFunc) Do(ctx context.Context, report *model.SessionReport) error {
	return f(ctx, report)
}

func (f stepFunc) Name() string {
	return "func"
}

func noop(context.Context, *model.SessionReport) error {
	return nil
}

func factoryFor(step Step) Factory {
	return func(string) (*Pipeline, error) {
		p := New(WithLogger(discardLogger()))
		p.AddStep(step)
		return p, nil
	}
}

func TestNewBatchProcessor(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(factoryFor(&mockStep{name: "x"}))
	if bp.concurrency != 1 {
		t.Errorf("default concurrency = %d, want 1", bp.concurrency)
	}

	bp = NewBatchProcessor(factoryFor(&mockStep{name: "x"}), WithConcurrency(4), WithBatchLogger(discardLogger()))
	if bp.concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", bp.concurrency)
	}

	bp = NewBatchProcessor(factoryFor(&mockStep{name: "x"}), WithConcurrency(0))
	if bp.concurrency != 1 {
		t.Errorf("zero concurrency should be ignored, got %d", bp.concurrency)
	}
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns reports in input order", func(t *testing.T) {
		t.Parallel()

		step := stepFunc(func(_ context.Context, r *model.SessionReport) error {
			r.Discovery = &model.DiscoveryResult{Links: []string{r.BaseURL}}
			return nil
		})
		bp := NewBatchProcessor(factoryFor(step), WithConcurrency(3), WithBatchLogger(discardLogger()))

		bases := []string{"https://a.example", "https://b.example", "https://c.example"}
		reports, err := bp.ProcessBatch(context.Background(), bases)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		for i, base := range bases {
			if reports[i].BaseURL != base || reports[i].Links()[0] != base {
				t.Errorf("reports[%d] = %s, want %s", i, reports[i].BaseURL, base)
			}
		}
	})

	t.Run("invalid targets are rejected individually", func(t *testing.T) {
		t.Parallel()

		var ran atomic.Int32
		step := stepFunc(func(context.Context, *model.SessionReport) error {
			ran.Add(1)
			return nil
		})
		bp := NewBatchProcessor(factoryFor(step), WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"ftp://example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if !errors.Is(reports[0].Error, ErrInvalidTarget) {
			t.Errorf("reports[0].Error = %v, want ErrInvalidTarget", reports[0].Error)
		}
		if reports[1].Error != nil {
			t.Errorf("reports[1].Error = %v", reports[1].Error)
		}
		if ran.Load() != 1 {
			t.Errorf("pipeline ran %d times, want 1", ran.Load())
		}
	})

	t.Run("failures do not stop other targets", func(t *testing.T) {
		t.Parallel()

		step := stepFunc(func(_ context.Context, r *model.SessionReport) error {
			if r.BaseURL == "https://bad.example" {
				return errors.New("boom")
			}
			return nil
		})
		bp := NewBatchProcessor(factoryFor(step), WithConcurrency(2), WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"https://bad.example", "https://good.example"})
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if reports[0].ErrorMessage != "boom" || reports[1].ErrorMessage != "" {
			t.Errorf("errors = %q, %q", reports[0].ErrorMessage, reports[1].ErrorMessage)
		}
	})

	t.Run("factory error is recorded", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) (*Pipeline, error) {
			return nil, errors.New("bad pattern")
		}, WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"https://example.com"})
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if reports[0].ErrorMessage != "bad pattern" {
			t.Errorf("ErrorMessage = %q", reports[0].ErrorMessage)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		step := stepFunc(func(context.Context, *model.SessionReport) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return nil
		})
		bp := NewBatchProcessor(factoryFor(step), WithConcurrency(2), WithBatchLogger(discardLogger()))

		bases := []string{"https://1.example", "https://2.example", "https://3.example", "https://4.example", "https://5.example"}
		if _, err := bp.ProcessBatch(context.Background(), bases); err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(factoryFor(&mockStep{name: "x"}), WithBatchLogger(discardLogger()))
		reports, err := bp.ProcessBatch(ctx, []string{"https://example.com"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("ProcessBatch() error = %v, want context.Canceled", err)
		}
		if !reports[0].Cancelled {
			t.Error("report should be marked cancelled")
		}
	})
}

func TestBatchProcessorProcessReports(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := &countingDiscoverer{calls: &calls}
	bp := NewBatchProcessor(func(string) (*Pipeline, error) {
		p := New(WithLogger(discardLogger()))
		p.AddStep(NewDiscoverStep(d, discardLogger()))
		return p, nil
	}, WithBatchLogger(discardLogger()))

	report := model.NewSessionReport("https://example.com")
	report.Discovery = &model.DiscoveryResult{Links: []string{"https://example.com"}}

	if err := bp.ProcessReports(context.Background(), []*model.SessionReport{report}); err != nil {
		t.Fatalf("ProcessReports() error = %v", err)
	}
	if calls.Load() != 0 {
		t.Error("existing discovery should be reused")
	}
}

type countingDiscoverer struct {
	calls *atomic.Int32
}

func (c *countingDiscoverer) Discover(_ context.Context, start, _ string) (*model.DiscoveryResult, error) {
	c.calls.Add(1)
	return &model.DiscoveryResult{BaseURL: start}, nil
}

func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(factoryFor(stepFunc(noop)), WithConcurrency(2), WithBatchLogger(discardLogger()))

	var mu sync.Mutex
	seen := make(map[int]string)
	bases := []string{"https://a.example", "https://b.example", "not-a-url"}
	reports, err := bp.ProcessBatchWithCallback(context.Background(), bases, func(r *model.SessionReport, i int) {
		mu.Lock()
		seen[i] = r.BaseURL
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("ProcessBatchWithCallback() error = %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("callback called %d times, want 3", len(seen))
	}
	if len(reports) != 3 || reports[2].Error == nil {
		t.Errorf("expected 3 reports with an error for the invalid target")
	}
	for i, base := range bases {
		if seen[i] != base {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], base)
		}
	}
}
