package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidAddress is returned for addresses that are not absolute
	// http or https URLs.
	ErrInvalidAddress = errors.New("invalid address: must be an absolute http(s) URL")

	// ErrInvalidPattern is returned when an ignore or follow glob does not compile.
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrInvalidProxy is returned for a proxy address that is not
	// "host:port" or a socks5, socks5h, http or https URL.
	ErrInvalidProxy = errors.New("invalid proxy address")
)

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	// URL is the requested address.
	URL string

	// Code is the HTTP status code, e.g. 404.
	Code int

	// Status is the status line text, e.g. "404 Not Found".
	Status string
}

// Error implements error.
func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("unexpected status %s for %s", status, e.URL)
}
