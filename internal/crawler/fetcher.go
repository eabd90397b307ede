package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/nao1215/sitearchive/internal/model"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Default fetcher settings.
const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxBodySize  = 10 * 1024 * 1024 // 10MB
	defaultUserAgent    = "sitearchive/1.0"

	// minCharsetConfidence is the chardet confidence (0-100) needed before
	// a guessed charset replaces the windows-1252 fallback.
	minCharsetConfidence = 50
)

// PageFetcher fetches one page. Discovery and extraction both depend on
// this interface, so tests can substitute canned pages.
type PageFetcher interface {
	Fetch(ctx context.Context, address string) (*model.Page, error)
}

// Fetcher is the HTTP PageFetcher. Every request is bounded by the fetch
// timeout, the response body is capped at the max body size, and the body
// is decoded to UTF-8.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	headers     map[string]string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the per-request timeout, including reading the body.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the number of body bytes read per response.
// Zero means no cap.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithHeaders adds extra request headers, e.g. from a site config.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		timeout:     defaultFetchTimeout,
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		headers:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request for address. Network errors, timeouts and
// non-2xx responses are returned as errors; a non-2xx response is a
// *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, address string) (*model.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &StatusError{URL: address, Code: resp.StatusCode, Status: resp.Status}
	}

	var body io.Reader = resp.Body
	if f.maxBodySize > 0 {
		body = io.LimitReader(resp.Body, f.maxBodySize)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", address, err)
	}

	contentType := resp.Header.Get("Content-Type")
	page := &model.Page{
		URL:         address,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        decodeBody(raw, contentType),
		FetchedAt:   time.Now(),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		page.FinalURL = resp.Request.URL.String()
	}
	return page, nil
}

// decodeBody converts body to UTF-8. The charset comes from a BOM, the
// Content-Type header or a <meta> declaration; when none is found and the
// body is not valid UTF-8, chardet guesses it. Undecodable bodies are
// returned unchanged.
func decodeBody(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)

	if !certain && name == "windows-1252" && !utf8.Valid(body) {
		if guess, err := chardet.NewHtmlDetector().DetectBest(body); err == nil && guess.Confidence >= minCharsetConfidence {
			if e, err := htmlindex.Get(guess.Charset); err == nil {
				enc, name = e, guess.Charset
			}
		}
	}

	if name == "utf-8" {
		return bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return body
	}
	return decoded
}
