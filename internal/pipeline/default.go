package pipeline

import (
	"net/http"
	"time"

	"github.com/nao1215/sitearchive/internal/config"
	"github.com/nao1215/sitearchive/internal/crawler"
	"github.com/nao1215/sitearchive/internal/extract"
)

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// MaxDepth is the maximum discovery depth.
	MaxDepth int

	// MaxPages caps fetches per discovery. Zero means no cap.
	MaxPages int

	// Delay is the politeness delay.
	Delay time.Duration

	// Timeout is the per-request fetch timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// IgnorePatterns are URL path patterns to skip during discovery.
	IgnorePatterns []string

	// FollowPatterns restrict discovery to matching URL paths.
	FollowPatterns []string

	// OutputRoot is where session directories are created.
	OutputRoot string

	// ExistingDir, when set, receives the artifacts instead of a new
	// session directory.
	ExistingDir string

	// Chooser picks the pages to extract. Nil selects every link.
	Chooser Chooser

	// HTTPClient overrides the client used for fetching.
	HTTPClient *http.Client

	// Proxy routes requests through a SOCKS5 or HTTP proxy. It is ignored
	// when HTTPClient is set.
	Proxy string

	// Recorder, when set, stores each extracted session.
	Recorder Recorder

	// SummaryFile writes summary.md into the session directory.
	SummaryFile bool

	// DiscoverOnly stops after discovery.
	DiscoverOnly bool
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineMaxDepth sets the discovery depth.
func WithPipelineMaxDepth(depth int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxDepth = depth
	}
}

// WithPipelineMaxPages sets the maximum pages fetched during discovery.
func WithPipelineMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxPages = maxPages
	}
}

// WithPipelineDelay sets the politeness delay.
func WithPipelineDelay(delay time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Delay = delay
	}
}

// WithPipelineTimeout sets the per-request timeout.
func WithPipelineTimeout(timeout time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Timeout = timeout
	}
}

// WithPipelineUserAgent sets the User-Agent header.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineIgnorePatterns sets URL patterns to skip during discovery.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL patterns to follow during discovery.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// WithPipelineOutputRoot sets the root of session directories.
func WithPipelineOutputRoot(root string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.OutputRoot = root
	}
}

// WithPipelineExistingDir writes artifacts into dir.
func WithPipelineExistingDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ExistingDir = dir
	}
}

// WithPipelineChooser sets how pages are selected for extraction.
func WithPipelineChooser(choose Chooser) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Chooser = choose
	}
}

// WithPipelineProxy sets the proxy address, e.g. "socks5://127.0.0.1:9050".
func WithPipelineProxy(address string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Proxy = address
	}
}

// WithPipelineHTTPClient sets the HTTP client.
func WithPipelineHTTPClient(client *http.Client) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.HTTPClient = client
	}
}

// WithPipelineRecorder stores finished sessions with recorder.
func WithPipelineRecorder(recorder Recorder) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Recorder = recorder
	}
}

// WithPipelineSummaryFile enables writing summary.md. With an existing
// directory the file is named per base address, see SummaryFileNameFor.
func WithPipelineSummaryFile(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SummaryFile = enabled
	}
}

// WithPipelineDiscoverOnly builds a pipeline that only discovers links.
func WithPipelineDiscoverOnly(discoverOnly bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DiscoverOnly = discoverOnly
	}
}

// ConfigOptions translates cfg, with the site overrides for baseURL, into
// pipeline options.
func ConfigOptions(cfg *config.Config, baseURL string) []DefaultPipelineOption {
	site := cfg.SiteConfigs.GetSiteConfig(baseURL)

	userAgent := cfg.UserAgent
	if site.UserAgent != "" {
		userAgent = site.UserAgent
	}

	return []DefaultPipelineOption{
		WithPipelineMaxDepth(cfg.DepthFor(baseURL)),
		WithPipelineMaxPages(cfg.MaxPages),
		WithPipelineDelay(cfg.PolitenessDelay),
		WithPipelineTimeout(cfg.Timeout),
		WithPipelineUserAgent(userAgent),
		WithPipelineMaxBodySize(cfg.MaxBodySize),
		WithPipelineHeaders(site.Headers),
		WithPipelineIgnorePatterns(site.IgnorePatterns),
		WithPipelineFollowPatterns(site.FollowPatterns),
		WithPipelineOutputRoot(cfg.OutputDir),
		WithPipelineProxy(cfg.Proxy),
	}
}

// DefaultPipeline creates a pipeline with the standard steps:
// discover, select, output_dir, extract, then optionally summary_file and
// record. The fetcher is shared by discovery and extraction.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineMaxDepth, etc).
// An invalid ignore or follow pattern is returned as an error.
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) (*Pipeline, error) {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		MaxDepth:    config.DefaultMaxDepth,
		MaxPages:    config.DefaultMaxPages,
		Delay:       config.DefaultPolitenessDelay,
		Timeout:     config.DefaultTimeout,
		UserAgent:   config.DefaultUserAgent,
		MaxBodySize: config.DefaultMaxBodySize,
		OutputRoot:  config.DefaultOutputDir(),
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	filter, err := crawler.NewPathFilter(cfg.IgnorePatterns, cfg.FollowPatterns)
	if err != nil {
		return nil, err
	}

	fetcherOpts := []crawler.FetcherOption{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithHeaders(cfg.Headers),
	}
	client := cfg.HTTPClient
	if client == nil && cfg.Proxy != "" {
		if client, err = crawler.NewProxyClient(cfg.Proxy); err != nil {
			return nil, err
		}
	}
	if client != nil {
		fetcherOpts = append(fetcherOpts, crawler.WithHTTPClient(client))
	}
	fetcher := crawler.NewFetcher(fetcherOpts...)

	spider := crawler.NewSpider(fetcher,
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.Delay),
		crawler.WithPathFilter(filter),
		crawler.WithSpiderLogger(p.logger),
	)
	p.AddStep(NewDiscoverStep(spider, p.logger))
	if cfg.DiscoverOnly {
		return p, nil
	}

	outputOpts := []OutputDirOption{WithOutputLogger(p.logger)}
	if cfg.ExistingDir != "" {
		outputOpts = append(outputOpts, WithExistingDir(cfg.ExistingDir))
	}
	extractor := extract.NewExtractor(fetcher,
		extract.WithDelay(cfg.Delay),
		extract.WithLogger(p.logger),
	)

	p.AddSteps(
		NewSelectStep(cfg.Chooser, p.logger),
		NewOutputDirStep(cfg.OutputRoot, outputOpts...),
		NewExtractStep(extractor, p.logger),
	)
	if cfg.SummaryFile {
		var summaryOpts []SummaryFileOption
		if cfg.ExistingDir != "" {
			summaryOpts = append(summaryOpts, WithSharedDir())
		}
		p.AddStep(NewSummaryFileStep(p.logger, summaryOpts...))
	}
	if cfg.Recorder != nil {
		p.AddStep(NewRecordStep(cfg.Recorder, p.logger))
	}

	return p, nil
}
