package log

import (
	"bytes"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTail_KeepsMostRecentLines(t *testing.T) {
	t.Parallel()

	tail := NewTail(10)
	for i := 1; i <= 12; i++ {
		tail.Append(fmt.Sprintf("line %d", i))
	}

	want := make([]string, 0, 10)
	for i := 3; i <= 12; i++ {
		want = append(want, fmt.Sprintf("line %d", i))
	}
	if got := tail.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if tail.Len() != 10 || tail.Cap() != 10 {
		t.Errorf("expected len=cap=10, got len=%d cap=%d", tail.Len(), tail.Cap())
	}
}

func TestTail_NeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("capacity %d", capacity), func(t *testing.T) {
			t.Parallel()
			tail := NewTail(capacity)
			for i := 0; i < 50; i++ {
				tail.Append(fmt.Sprint(i))
				if tail.Len() > capacity {
					t.Fatalf("length %d exceeds capacity %d", tail.Len(), capacity)
				}
			}
			lines := tail.Lines()
			if lines[len(lines)-1] != "49" {
				t.Errorf("expected newest line last, got %v", lines)
			}
		})
	}
}

func TestTail_PartiallyFilled(t *testing.T) {
	t.Parallel()

	tail := NewTail(5)
	tail.Append("a")
	tail.Append("b")
	if got := tail.Lines(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestTail_InvalidCapacity(t *testing.T) {
	t.Parallel()

	if got := NewTail(0).Cap(); got != 1 {
		t.Errorf("expected capacity 1, got %d", got)
	}
}

func TestTail_Since(t *testing.T) {
	t.Parallel()

	tail := NewTail(3)
	lines, cursor := tail.Since(0)
	if len(lines) != 0 || cursor != 0 {
		t.Fatalf("expected empty feed, got %v cursor=%d", lines, cursor)
	}

	tail.Append("a")
	tail.Append("b")
	lines, cursor = tail.Since(cursor)
	if !reflect.DeepEqual(lines, []string{"a", "b"}) || cursor != 2 {
		t.Fatalf("expected [a b] cursor=2, got %v cursor=%d", lines, cursor)
	}

	lines, cursor = tail.Since(cursor)
	if len(lines) != 0 || cursor != 2 {
		t.Fatalf("expected nothing new, got %v cursor=%d", lines, cursor)
	}

	// c, d, e, f: a and b and c are overwritten, only d e f remain.
	for _, s := range []string{"c", "d", "e", "f"} {
		tail.Append(s)
	}
	lines, cursor = tail.Since(cursor)
	if !reflect.DeepEqual(lines, []string{"d", "e", "f"}) || cursor != 6 {
		t.Errorf("expected [d e f] cursor=6, got %v cursor=%d", lines, cursor)
	}
}

func TestTail_Reset(t *testing.T) {
	t.Parallel()

	tail := NewTail(3)
	tail.Append("a")
	tail.Reset()
	if tail.Len() != 0 {
		t.Errorf("expected empty tail, got %v", tail.Lines())
	}
	tail.Append("b")
	lines, cursor := tail.Since(0)
	if !reflect.DeepEqual(lines, []string{"b"}) || cursor != 2 {
		t.Errorf("expected [b] cursor=2, got %v cursor=%d", lines, cursor)
	}
}

func TestTail_Wait(t *testing.T) {
	t.Parallel()

	tail := NewTail(3)
	ch := tail.Wait()
	select {
	case <-ch:
		t.Fatal("wait channel closed before any append")
	default:
	}

	tail.Append("x")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("wait channel not closed after append")
	}
}

func TestTail_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	tail := NewTail(10)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tail.Append("line")
			}
		}()
	}
	wg.Wait()

	if _, cursor := tail.Since(0); cursor != 800 {
		t.Errorf("expected 800 appended lines, got %d", cursor)
	}
	if tail.Len() != 10 {
		t.Errorf("expected 10 buffered lines, got %d", tail.Len())
	}
}

func TestTailHandler_Format(t *testing.T) {
	t.Parallel()

	tail := NewTail(10)
	logger := slog.New(NewTailHandler(tail, slog.LevelInfo))
	logger.Debug("dropped")
	logger.With("base", "https://example.com").Info("Found new link", "url", "https://example.com/a", "count", 3)
	logger.WithGroup("stats").Warn("done", "failed", 1)

	lines := tail.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if !strings.Contains(lines[0], " - INFO - Found new link base=https://example.com url=https://example.com/a count=3") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if _, err := time.Parse(TailTimeFormat, lines[0][:len(TailTimeFormat)]); err != nil {
		t.Errorf("expected timestamp prefix, got %q: %v", lines[0], err)
	}
	if !strings.Contains(lines[1], " - WARN - done stats.failed=1") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestTailHandler_QuotesValuesWithSpaces(t *testing.T) {
	t.Parallel()

	tail := NewTail(1)
	slog.New(NewTailHandler(tail, nil)).Info("Request failed", "error", "connection refused")
	if !strings.HasSuffix(tail.Lines()[0], `error="connection refused"`) {
		t.Errorf("unexpected line %q", tail.Lines()[0])
	}
}

func TestNewSessionLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tail := NewTail(10)
	logger := NewSessionLogger(NewLogger(&buf, false), tail)
	logger.Info("Checking", "url", "https://example.com/?token=abc")

	if !strings.Contains(buf.String(), "Checking") {
		t.Errorf("expected base logger output, got %q", buf.String())
	}
	lines := tail.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "Checking") {
		t.Fatalf("expected one tail line, got %v", lines)
	}
	if strings.Contains(lines[0], "token=abc") || strings.Contains(buf.String(), "token=abc") {
		t.Errorf("token leaked: tail=%q base=%q", lines[0], buf.String())
	}
}

func TestFanoutHandler_Levels(t *testing.T) {
	t.Parallel()

	var debugBuf, warnBuf bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		nil,
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h)
	logger.Debug("low")
	logger.Warn("high")

	if !strings.Contains(debugBuf.String(), "low") || !strings.Contains(debugBuf.String(), "high") {
		t.Errorf("debug handler missed records: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "low") || !strings.Contains(warnBuf.String(), "high") {
		t.Errorf("warn handler got wrong records: %q", warnBuf.String())
	}
}
