package log

import (
	"io"
	"log/slog"
)

// levelFor maps the verbose flag to a minimum level. Progress lines are
// logged at Info, so Info is the quiet default.
func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger creates a text slog.Logger whose output is redacted.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Info
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFor(verbose)})
	return slog.New(NewRedactingHandler(h))
}

// NewJSONLogger creates a redacted slog.Logger that outputs JSON.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(verbose)})
	return slog.New(NewRedactingHandler(h))
}

// NewSessionLogger returns a logger that writes to base and also feeds
// tail, so a front end can follow the progress of one session.
// Both branches are redacted.
func NewSessionLogger(base *slog.Logger, tail *Tail) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if tail == nil {
		return base
	}
	return slog.New(NewFanoutHandler(
		base.Handler(),
		NewRedactingHandler(NewTailHandler(tail, slog.LevelInfo)),
	))
}
