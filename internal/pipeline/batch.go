package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitearchive/internal/config"
	"github.com/nao1215/sitearchive/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidTarget is recorded for a base address that does not start
// with http:// or https://. Other base addresses of the batch still run.
var ErrInvalidTarget = config.ErrInvalidTarget

// Factory builds the pipeline for one base address, so that per-site
// settings can differ between base addresses.
type Factory func(baseURL string) (*Pipeline, error)

// BatchProcessor runs one pipeline per base address, several at a time.
// Each base address is handled by a single goroutine; only different base
// addresses run concurrently.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of base addresses processed at
// once. Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: config.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs a pipeline for every base address and returns one
// report per address, in input order. Failures are recorded in the
// reports; the error is only non-nil when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, baseURLs []string) ([]*model.SessionReport, error) {
	reports := make([]*model.SessionReport, len(baseURLs))
	for i, base := range baseURLs {
		reports[i] = model.NewSessionReport(base)
	}
	err := bp.ProcessReports(ctx, reports)
	return reports, err
}

// ProcessReports runs a pipeline on each report. Reports may already hold
// a discovery result from an earlier run; the discover step then keeps it.
func (bp *BatchProcessor) ProcessReports(ctx context.Context, reports []*model.SessionReport) error {
	return bp.process(ctx, reports, nil)
}

// ProcessBatchWithCallback is ProcessBatch that also calls callback as
// soon as each base address finishes. The callback runs on the worker
// goroutine and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	baseURLs []string,
	callback func(report *model.SessionReport, index int),
) ([]*model.SessionReport, error) {
	reports := make([]*model.SessionReport, len(baseURLs))
	for i, base := range baseURLs {
		reports[i] = model.NewSessionReport(base)
	}
	err := bp.process(ctx, reports, callback)
	return reports, err
}

func (bp *BatchProcessor) process(
	ctx context.Context,
	reports []*model.SessionReport,
	callback func(report *model.SessionReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total", len(reports),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, report := range reports {
		g.Go(func() error {
			defer func() {
				if callback != nil {
					callback(report, i)
				}
			}()

			if err := gctx.Err(); err != nil {
				report.Cancelled = true
				report.SetError(err)
				return err
			}
			if !config.IsHTTPAddress(report.BaseURL) {
				bp.logger.Warn("invalid target", "url", report.BaseURL)
				report.SetError(fmt.Errorf("%w: %s", ErrInvalidTarget, report.BaseURL))
				return nil
			}

			p, err := bp.factory(report.BaseURL)
			if err != nil {
				report.SetError(err)
				bp.logger.Warn("failed to build pipeline", "url", report.BaseURL, "error", err)
				return nil
			}

			bp.logger.Info("processing base address",
				"url", report.BaseURL,
				"index", i+1,
				"total", len(reports),
			)
			if err := p.Execute(gctx, report); err != nil {
				bp.logger.Warn("session failed", "url", report.BaseURL, "error", err)
				if report.Cancelled {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total", len(reports),
		"elapsed", time.Since(startTime),
	)
	if err == nil {
		err = ctx.Err()
	}
	return err
}
