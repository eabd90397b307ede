package crawler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/nao1215/sitearchive/internal/model"
)

// progressInterval is how many found links pass between progress lines.
const progressInterval = 20

// Spider is the discovery engine. Starting from one address it follows
// anchor links depth-first, stays inside a scope prefix, and returns every
// in-scope address it encountered.
//
// A Spider holds configuration only. Each call to Discover owns its own
// visited and discovered sets, so one Spider may run several sessions,
// even concurrently.
type Spider struct {
	// fetcher retrieves pages.
	fetcher PageFetcher

	// maxDepth limits how many hops from the start address are fetched.
	// 0 means only the start page, 1 means one level of links, etc.
	maxDepth int

	// maxPages caps fetches per session. 0 means no cap.
	maxPages int

	// delay is the politeness delay. Discovery waits half of it before
	// each recursion step.
	delay time.Duration

	// filter restricts which in-scope paths are followed.
	filter *PathFilter

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages caps the number of fetches per session. 0 disables the cap.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the politeness delay. Discovery uses half of it.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithPathFilter sets the ignore/follow filter. Links it rejects are
// neither discovered nor fetched. The start address is never filtered.
func WithPathFilter(f *PathFilter) SpiderOption {
	return func(s *Spider) {
		s.filter = f
	}
}

// WithSpiderLogger sets the logger progress is reported to.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider fetching pages with fetcher.
func NewSpider(fetcher PageFetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		maxDepth: 5,
		delay:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// frame is one page on the explicit work stack: the links found on it and
// the position of the next link to look at. Working through frames from
// the top of the stack visits pages in the same depth-first order a
// recursive crawler would.
type frame struct {
	links []string
	next  int
	depth int
}

// session is the state of one discovery run.
type session struct {
	scope      string
	visited    map[string]bool
	discovered map[string]bool
	stats      model.DiscoveryStats
	truncated  bool
}

// Discover crawls from start and returns the sorted in-scope addresses it
// found. scope is usually start itself.
//
// Per-page failures are logged and never returned: a start address that
// cannot be fetched yields an empty result and a nil error. The only
// errors are an invalid start address and context cancellation; on
// cancellation the links found so far are returned along with ctx.Err().
func (s *Spider) Discover(ctx context.Context, start, scope string) (*model.DiscoveryResult, error) {
	start, err := NormalizeAddress(start)
	if err != nil {
		return nil, err
	}
	if scope == "" {
		scope = start
	}

	sess := &session{
		scope:      scope,
		visited:    make(map[string]bool),
		discovered: make(map[string]bool),
	}
	result := &model.DiscoveryResult{
		BaseURL:   start,
		Scope:     scope,
		MaxDepth:  s.maxDepth,
		StartedAt: time.Now(),
	}

	s.logger.Info("Starting link discovery", "url", start, "max_depth", s.maxDepth)

	err = s.run(ctx, sess, start)

	result.Links = sortedKeys(sess.discovered)
	result.Stats = sess.stats
	result.Stats.Found = len(result.Links)
	result.Truncated = sess.truncated || err != nil
	result.FinishedAt = time.Now()

	s.logger.Info("Discovery complete",
		"url", start,
		"checked", result.Stats.Checked,
		"found", result.Stats.Found,
		"failed", result.Stats.Failed,
		"elapsed", result.Duration(),
	)
	if result.Empty() {
		s.logger.Warn("No links discovered", "url", start)
	}

	return result, err
}

// run drives the work stack until it is empty, the page cap is hit or ctx
// is cancelled.
func (s *Spider) run(ctx context.Context, sess *session, start string) error {
	stack := make([]*frame, 0, s.maxDepth+1)
	f, err := s.visit(ctx, sess, start, 0)
	if err != nil {
		return err
	}
	if f != nil {
		stack = append(stack, f)
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.links) {
			stack = stack[:len(stack)-1]
			continue
		}
		link := top.links[top.next]
		top.next++

		if !InScope(link, sess.scope) {
			s.logger.Debug("Skipping external link", "url", link)
			continue
		}
		if sess.visited[link] {
			s.logger.Debug("Skipping already visited link", "url", link)
			continue
		}
		if !s.filter.Allow(link) {
			s.logger.Debug("Skipping filtered link", "url", link)
			continue
		}

		if !sess.discovered[link] {
			s.addDiscovered(sess, link)
			s.logger.Debug("Added new link to explore", "url", link, "depth", top.depth)
		}

		depth := top.depth + 1
		if depth > s.maxDepth {
			s.logger.Debug("Max discovery depth reached", "url", link, "max_depth", s.maxDepth)
			continue
		}
		if s.maxPages > 0 && sess.stats.Checked >= s.maxPages {
			s.logger.Info("Page limit reached, stopping discovery", "max_pages", s.maxPages)
			sess.truncated = true
			return nil
		}

		if err := sleep(ctx, s.delay/2); err != nil {
			return err
		}

		f, err := s.visit(ctx, sess, link, depth)
		if err != nil {
			return err
		}
		if f != nil {
			stack = append(stack, f)
		}
	}
	return nil
}

// visit fetches one page and returns the frame of its links, or nil when
// the branch ends here. The only error is context cancellation.
func (s *Spider) visit(ctx context.Context, sess *session, address string, depth int) (f *frame, err error) {
	if sess.visited[address] || depth > s.maxDepth {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess.stats.Checked++
	sess.visited[address] = true
	s.logger.Info("Visiting", "depth", depth, "checked", sess.stats.Checked, "url", address)

	defer func() {
		if r := recover(); r != nil {
			sess.stats.Failed++
			s.logger.Error("Unexpected error while discovering",
				"url", address,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			f, err = nil, nil
		}
	}()

	page, err := s.fetcher.Fetch(ctx, address)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		sess.stats.Failed++
		s.logger.Warn("Request failed", "url", address, "error", err)
		return nil, nil
	}

	if InScope(address, sess.scope) && !sess.discovered[address] {
		s.addDiscovered(sess, address)
	}

	links, err := ParseLinks(page.BaseURL(), page.Body)
	if err != nil {
		s.logger.Warn("Failed to parse page", "url", address, "error", err)
		return nil, nil
	}
	return &frame{links: links, depth: depth}, nil
}

func (s *Spider) addDiscovered(sess *session, address string) {
	sess.discovered[address] = true
	sess.stats.Found++
	if sess.stats.Found%progressInterval == 0 {
		s.logger.Info("Discovery progress", "found", sess.stats.Found)
	}
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

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
