package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TailTimeFormat is the timestamp layout of lines written to a Tail.
const TailTimeFormat = "2006-01-02 15:04:05,000"

// TailHandler is an slog.Handler that renders each record as a single
// line, "time - LEVEL - message key=value ...", and appends it to a Tail.
type TailHandler struct {
	tail   *Tail
	level  slog.Leveler
	attrs  string // preformatted attributes from WithAttrs
	prefix string // group prefix from WithGroup, with trailing dot
}

// NewTailHandler creates a TailHandler writing records at or above level.
func NewTailHandler(tail *Tail, level slog.Leveler) *TailHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &TailHandler{tail: tail, level: level}
}

// Enabled reports whether level is at or above the handler's level.
func (h *TailHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats r and appends it to the tail.
func (h *TailHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format(TailTimeFormat))
	b.WriteString(" - ")
	b.WriteString(r.Level.String())
	b.WriteString(" - ")
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	h.tail.Append(b.String())
	return nil
}

// WithAttrs returns a handler that includes attrs on every line.
func (h *TailHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *TailHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, p, ga)
		}
		return
	}
	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") {
		val = fmt.Sprintf("%q", val)
	}
	fmt.Fprintf(b, " %s%s=%s", prefix, a.Key, val)
}
