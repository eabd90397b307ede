package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/sitearchive/internal/model"
	"github.com/nao1215/sitearchive/internal/naming"
	"github.com/nao1215/sitearchive/internal/report"
	"github.com/nao1215/sitearchive/internal/selection"
)

// Discoverer finds the in-scope links of a site. crawler.Spider implements it.
type Discoverer interface {
	Discover(ctx context.Context, start, scope string) (*model.DiscoveryResult, error)
}

// BatchExtractor extracts a list of pages into a directory.
// extract.Extractor implements it.
type BatchExtractor interface {
	ExtractAll(ctx context.Context, addresses []string, dir string) (*model.Summary, error)
}

// Recorder stores a finished session. database.HistoryDB implements it.
type Recorder interface {
	SaveSession(ctx context.Context, report *model.SessionReport) (int64, error)
}

// Chooser picks the addresses to extract out of the discovered links.
type Chooser func(ctx context.Context, report *model.SessionReport) ([]string, error)

// SelectAll chooses every discovered link.
func SelectAll(_ context.Context, report *model.SessionReport) ([]string, error) {
	return report.Links(), nil
}

// SelectByExpr chooses links with a selection string such as "1,3,5-7"
// or "all". An invalid selection is an error.
func SelectByExpr(expr string) Chooser {
	return func(_ context.Context, report *model.SessionReport) ([]string, error) {
		return selection.Select(report.Links(), expr)
	}
}

// SelectLinks chooses a fixed list of addresses.
func SelectLinks(links []string) Chooser {
	return func(_ context.Context, _ *model.SessionReport) ([]string, error) {
		return links, nil
	}
}

// DiscoverStep runs link discovery from the report's base address, which
// is also the scope. A report that already holds a discovery result is
// left unchanged, so a pipeline can resume a session discovered earlier.
type DiscoverStep struct {
	discoverer Discoverer
	logger     *slog.Logger
}

// NewDiscoverStep creates a discovery step.
func NewDiscoverStep(discoverer Discoverer, logger *slog.Logger) *DiscoverStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoverStep{discoverer: discoverer, logger: logger}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do executes the discovery step. On cancellation the partial result is
// kept in the report.
func (s *DiscoverStep) Do(ctx context.Context, r *model.SessionReport) error {
	if r.Discovery != nil {
		s.logger.Debug("Using existing discovery result", "url", r.BaseURL, "links", len(r.Discovery.Links))
		return nil
	}

	result, err := s.discoverer.Discover(ctx, r.BaseURL, "")
	if result != nil {
		r.Discovery = result
	}
	return err
}

// SelectStep fills report.Selected with a Chooser.
type SelectStep struct {
	choose Chooser
	logger *slog.Logger
}

// NewSelectStep creates a selection step. A nil chooser selects everything.
func NewSelectStep(choose Chooser, logger *slog.Logger) *SelectStep {
	if choose == nil {
		choose = SelectAll
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectStep{choose: choose, logger: logger}
}

// Name returns the step name.
func (s *SelectStep) Name() string {
	return "select"
}

// Do executes the selection step.
func (s *SelectStep) Do(ctx context.Context, r *model.SessionReport) error {
	if len(r.Links()) == 0 {
		s.logger.Warn("No links discovered, nothing to select", "url", r.BaseURL)
		r.Selected = nil
		return nil
	}

	selected, err := s.choose(ctx, r)
	if err != nil {
		return err
	}
	r.Selected = selected
	s.logger.Info("Pages selected for extraction", "url", r.BaseURL, "selected", len(selected), "discovered", len(r.Links()))
	return nil
}

// OutputDirStep creates the session directory. Without a selection it does
// nothing, so no empty directories are left behind. A failure here is
// fatal for the session.
type OutputDirStep struct {
	root     string
	existing string
	now      func() time.Time
	logger   *slog.Logger
}

// OutputDirOption configures an OutputDirStep.
type OutputDirOption func(*OutputDirStep)

// WithExistingDir makes the step reuse dir instead of creating a new
// session directory under the root.
func WithExistingDir(dir string) OutputDirOption {
	return func(s *OutputDirStep) {
		s.existing = dir
	}
}

// WithOutputClock sets the time source for directory names.
func WithOutputClock(now func() time.Time) OutputDirOption {
	return func(s *OutputDirStep) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOutputLogger sets the logger.
func WithOutputLogger(logger *slog.Logger) OutputDirOption {
	return func(s *OutputDirStep) {
		s.logger = logger
	}
}

// NewOutputDirStep creates a step making session directories under root.
func NewOutputDirStep(root string, opts ...OutputDirOption) *OutputDirStep {
	s := &OutputDirStep{
		root:   root,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *OutputDirStep) Name() string {
	return "output_dir"
}

// Do executes the output directory step. Errors wrap naming.ErrCreateSessionDir.
func (s *OutputDirStep) Do(_ context.Context, r *model.SessionReport) error {
	if len(r.Selected) == 0 {
		return nil
	}

	var (
		dir string
		err error
	)
	if s.existing != "" {
		dir, err = naming.EnsureDir(s.existing)
	} else {
		dir, err = naming.SessionDir(s.root, r.BaseURL, s.now())
	}
	if err != nil {
		return err
	}

	r.OutputDir = dir
	s.logger.Info("Session output directory", "url", r.BaseURL, "dir", dir)
	return nil
}

// ExtractStep extracts the selected pages into the session directory.
type ExtractStep struct {
	extractor BatchExtractor
	logger    *slog.Logger
}

// NewExtractStep creates an extraction step.
func NewExtractStep(extractor BatchExtractor, logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{extractor: extractor, logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extraction step. Only cancellation is returned as an
// error; failed pages are listed in the summary.
func (s *ExtractStep) Do(ctx context.Context, r *model.SessionReport) error {
	if len(r.Selected) == 0 {
		s.logger.Info("No pages selected, skipping extraction", "url", r.BaseURL)
		return nil
	}
	if r.OutputDir == "" {
		return fmt.Errorf("%w: no output directory for %s", naming.ErrCreateSessionDir, r.BaseURL)
	}

	summary, err := s.extractor.ExtractAll(ctx, r.Selected, r.OutputDir)
	if summary != nil {
		summary.BaseURL = r.BaseURL
		r.Summary = summary
	}
	return err
}

// SummaryFileName is the Markdown summary written into a session directory.
const SummaryFileName = "summary.md"

// SummaryFileNameFor returns the summary file name of base inside a
// directory shared by several base addresses: "summary_<base>.md".
func SummaryFileNameFor(base string) string {
	return "summary_" + naming.SessionBaseName(base) + ".md"
}

// SummaryFileStep writes a Markdown summary of the session into its
// output directory. A write failure is logged and does not fail the session.
type SummaryFileStep struct {
	shared bool
	logger *slog.Logger
}

// SummaryFileOption configures a SummaryFileStep.
type SummaryFileOption func(*SummaryFileStep)

// WithSharedDir names the summary after the base address, so sessions
// writing into the same existing directory keep their own summaries.
func WithSharedDir() SummaryFileOption {
	return func(s *SummaryFileStep) {
		s.shared = true
	}
}

// NewSummaryFileStep creates a summary file step.
func NewSummaryFileStep(logger *slog.Logger, opts ...SummaryFileOption) *SummaryFileStep {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SummaryFileStep{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SummaryFileStep) Name() string {
	return "summary_file"
}

// Do executes the summary file step.
func (s *SummaryFileStep) Do(_ context.Context, r *model.SessionReport) error {
	if r.OutputDir == "" {
		return nil
	}

	name := SummaryFileName
	if s.shared {
		name = SummaryFileNameFor(r.BaseURL)
	}
	path := filepath.Join(r.OutputDir, name)
	f, err := os.Create(path) //nolint:gosec // path is inside the session directory
	if err != nil {
		s.logger.Warn("Failed to create summary file", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	if _, err := report.NewMarkdownWriter(f).Write(r); err != nil {
		s.logger.Warn("Failed to write summary file", "path", path, "error", err)
	}
	return nil
}

// RecordStep stores the session in the history database. A storage
// failure is logged and does not fail the session.
type RecordStep struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewRecordStep creates a history step.
func NewRecordStep(recorder Recorder, logger *slog.Logger) *RecordStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStep{recorder: recorder, logger: logger}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the history step. Sessions without an extraction are not
// recorded.
func (s *RecordStep) Do(ctx context.Context, r *model.SessionReport) error {
	if r.Summary == nil {
		return nil
	}
	id, err := s.recorder.SaveSession(ctx, r)
	if err != nil {
		s.logger.Warn("Failed to record session", "url", r.BaseURL, "error", err)
		return nil
	}
	s.logger.Debug("Session recorded", "url", r.BaseURL, "id", id)
	return nil
}
