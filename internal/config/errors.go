package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers can match them with errors.Is.
var (
	// ErrNoTarget is returned when no base address is given.
	ErrNoTarget = errors.New("no target specified: provide one or more base URLs")

	// ErrInvalidTarget is returned when a base address is not an http(s) URL.
	ErrInvalidTarget = errors.New("invalid target: URLs must start with http:// or https://")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	ErrInvalidDelay = errors.New("invalid politeness delay: must be non-negative")

	// ErrInvalidDepth is returned when the discovery depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidLogTailSize is returned when the log tail capacity is not positive.
	ErrInvalidLogTailSize = errors.New("invalid log tail size: must be positive")
)
