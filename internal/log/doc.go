// Package log provides logging for sitearchive, built on the standard
// slog package.
//
// This package extends slog to provide:
//   - Redaction of sensitive values (cookies, tokens, credentials in URLs)
//   - Configurable log levels with verbose mode support
//   - A bounded Tail of recent lines that front ends poll or stream
//
// # Redaction
//
// The RedactingHandler masks attributes whose key looks sensitive
// (Authorization, Cookie, token, password ...) and rewrites URL-valued
// attributes so that sensitive query parameters and userinfo passwords are
// replaced with MaskValue.
//
// # Progress feed
//
// A Tail keeps the last N formatted log lines. Each discovery or
// extraction session gets its own logger that fans out to the process
// logger and to a TailHandler:
//
//	tail := log.NewTail(10)
//	logger := log.NewSessionLogger(base, tail)
//	logger.Info("Found new link", "url", "https://example.com/docs/a")
//
//	lines, cursor := tail.Since(0)
//	// ... later
//	more, cursor := tail.Since(cursor)
package log
