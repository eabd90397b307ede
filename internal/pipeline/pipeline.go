package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/sitearchive/internal/model"
)

// Step is one stage of a session pipeline. Steps run in sequence, each
// receiving the report filled in by the steps before it.
type Step interface {
	// Do executes the step. A returned error stops the pipeline unless it
	// was built with WithContinueOnError. Failures that only affect part of
	// the work, such as one page that could not be fetched, are recorded in
	// the report and do not produce an error.
	Do(ctx context.Context, report *model.SessionReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order against one session report.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Logger returns the pipeline's logger.
func (p *Pipeline) Logger() *slog.Logger {
	return p.logger
}

// Execute runs all steps in sequence. Cancellation is checked before each
// step; a cancelled run marks the report as cancelled and keeps whatever
// the steps produced so far.
func (p *Pipeline) Execute(ctx context.Context, report *model.SessionReport) error {
	var firstErr error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", report.BaseURL,
				"reason", err,
			)
			report.Cancelled = true
			report.SetError(err)
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"url", report.BaseURL,
		)

		if err := step.Do(ctx, report); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				report.Cancelled = true
			}
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", report.BaseURL,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
				report.SetError(err)
			}
			if !p.continueOnError || report.Cancelled {
				report.PerformedSteps = append(report.PerformedSteps, step.Name())
				return err
			}
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
