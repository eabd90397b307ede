package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/nao1215/sitearchive/internal/crawler"
	"github.com/nao1215/sitearchive/internal/model"
	"github.com/nao1215/sitearchive/internal/naming"
)

// artifactFileMode is the permission of written artifact files.
const artifactFileMode = 0o600

// Extractor fetches pages, pulls their main text out and writes one
// artifact file per page.
type Extractor struct {
	fetcher crawler.PageFetcher
	logger  *slog.Logger
	delay   time.Duration
	rules   []ContentRule
	noise   []string
	now     func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithDelay sets the politeness delay applied before every job of a batch.
func WithDelay(d time.Duration) Option {
	return func(e *Extractor) {
		e.delay = d
	}
}

// WithRules replaces the content rule table.
func WithRules(rules []ContentRule) Option {
	return func(e *Extractor) {
		e.rules = rules
	}
}

// WithNoiseSelectors replaces the noise selector list.
func WithNoiseSelectors(noise []string) Option {
	return func(e *Extractor) {
		e.noise = noise
	}
}

// WithClock sets the function used for Scraped_At timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExtractor creates an Extractor fetching with fetcher.
func NewExtractor(fetcher crawler.PageFetcher, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher: fetcher,
		delay:   500 * time.Millisecond,
		rules:   DefaultContentRules,
		noise:   DefaultNoiseSelectors,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Extract fetches one address and writes its artifact into dir.
// Failures are reported in the result, never as a panic or error.
func (e *Extractor) Extract(ctx context.Context, address, dir string) model.ExtractionResult {
	return e.extract(ctx, address, dir, naming.NewArtifactNamer())
}

// ExtractAll extracts every address into dir, one at a time in the given
// order, waiting the politeness delay before each job. A failing job never
// stops the batch.
//
// When ctx is cancelled the jobs not yet run are recorded as cancelled
// failures and ctx.Err() is returned along with the summary.
func (e *Extractor) ExtractAll(ctx context.Context, addresses []string, dir string) (*model.Summary, error) {
	summary := model.NewSummary("", dir)
	namer := naming.NewArtifactNamer()

	e.logger.Info("Starting extraction", "pages", len(addresses), "dir", dir)

	var err error
	for i, address := range addresses {
		if err = sleep(ctx, e.delay); err != nil {
			for _, rest := range addresses[i:] {
				summary.Add(model.ExtractionResult{
					URL:    rest,
					Reason: model.ReasonCancelled,
					Detail: err.Error(),
				})
			}
			break
		}
		summary.Add(e.extract(ctx, address, dir, namer))
	}
	summary.Finish()

	e.logger.Info("Extraction complete",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.FailedCount(),
		"dir", dir,
	)
	return summary, err
}

func (e *Extractor) extract(ctx context.Context, address, dir string, namer *naming.ArtifactNamer) (result model.ExtractionResult) {
	result.URL = address

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Unexpected error while extracting",
				"url", address,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result = model.ExtractionResult{
				URL:    address,
				Reason: model.ReasonUnexpectedError,
				Detail: fmt.Sprint(r),
			}
		}
	}()

	e.logger.Info("Scraping content", "url", address)

	page, err := e.fetcher.Fetch(ctx, address)
	if err != nil {
		var statusErr *crawler.StatusError
		if errors.As(err, &statusErr) {
			e.logger.Error("HTTP error", "url", address, "status", statusErr.Code)
		} else {
			e.logger.Error("Request error", "url", address, "error", err)
		}
		result.Reason = model.ReasonRequestError
		result.Detail = err.Error()
		return result
	}

	content, err := ExtractContent(page.Body, e.rules, e.noise)
	if err != nil {
		e.logger.Error("Failed to parse page", "url", address, "error", err)
		result.Reason = model.ReasonUnexpectedError
		result.Detail = err.Error()
		return result
	}
	if content.Rule == "" {
		e.logger.Warn("No primary content element found", "url", address)
	} else {
		e.logger.Debug("Content found", "url", address, "selector", content.Rule)
	}

	artifact := model.Artifact{
		URL:       address,
		ScrapedAt: e.now(),
		Body:      content.Text,
	}
	path := filepath.Join(dir, namer.Name(address))
	if err := os.WriteFile(path, artifact.Bytes(), artifactFileMode); err != nil {
		e.logger.Error("File write error", "url", address, "path", path, "error", err)
		result.Reason = model.ReasonWriteError
		result.Detail = err.Error()
		return result
	}

	e.logger.Info("Saved content", "url", address, "path", path)
	result.Path = path
	result.Rule = content.Rule
	return result
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
