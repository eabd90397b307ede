package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds every page fetch during discovery and extraction.
	DefaultTimeout = 15 * time.Second

	// DefaultPolitenessDelay is the pause before each extraction fetch.
	// Discovery waits half of it before each recursion step.
	DefaultPolitenessDelay = 500 * time.Millisecond

	// DefaultMaxDepth is the number of link hops discovery follows from
	// the start address. The cost of a session grows as
	// branching^depth, so keep this conservative.
	DefaultMaxDepth = 5

	// DefaultMaxPages caps fetches per discovery session. Zero means no cap;
	// depth and the visited set are then the only bounds.
	DefaultMaxPages = 0

	// DefaultLogTailSize is the number of recent log lines kept for
	// progress streaming.
	DefaultLogTailSize = 10

	// DefaultConcurrency is the number of base addresses discovered at once.
	// Each base address is always crawled by a single goroutine.
	DefaultConcurrency = 1

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies sitearchive in HTTP requests.
	DefaultUserAgent = "sitearchive/1.0 (+https://github.com/nao1215/sitearchive)"

	// DefaultOutputDirName is the folder created under the temp directory
	// when no output root is configured.
	DefaultOutputDirName = "Web_Scrapes"

	// AppName is the application name used for XDG directory paths.
	AppName = "sitearchive"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvOutputDir = "SCRAPER_OUTPUT_DIR"
	EnvTimeout   = "SCRAPER_TIMEOUT"
	EnvDelay     = "SCRAPER_DELAY"
	EnvMaxDepth  = "SCRAPER_MAX_DEPTH"
	EnvProxy     = "SCRAPER_PROXY"
)

// Config holds all configuration options for sitearchive.
// It is populated from defaults, environment, the config file and CLI flags,
// in that order of increasing precedence, and passed down explicitly.
type Config struct {
	// Targets are the base addresses to crawl. Each one is also the scope
	// prefix of its own discovery session.
	Targets []string

	// Timeout is the per-request fetch timeout.
	Timeout time.Duration

	// PolitenessDelay is applied before every extraction fetch, and halved
	// before every discovery recursion step.
	PolitenessDelay time.Duration

	// MaxDepth is the maximum number of hops from the start address.
	// Depth 0 fetches only the start address.
	MaxDepth int

	// MaxPages caps the number of fetches in one discovery session.
	// Zero disables the cap.
	MaxPages int

	// Concurrency is the number of base addresses discovered in parallel.
	Concurrency int

	// OutputDir is the root under which session directories are created.
	OutputDir string

	// LogTailSize is the capacity of the progress log ring buffer.
	LogTailSize int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Proxy routes every request through a proxy, e.g.
	// "socks5://127.0.0.1:9050". Empty means a direct connection.
	Proxy string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit configuration file path. When empty the
	// file is searched for with FindConfigFile.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory holding the session history database.
	// Empty disables history.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		PolitenessDelay: DefaultPolitenessDelay,
		MaxDepth:        DefaultMaxDepth,
		MaxPages:        DefaultMaxPages,
		Concurrency:     DefaultConcurrency,
		OutputDir:       DefaultOutputDir(),
		LogTailSize:     DefaultLogTailSize,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		DBDir:           XDGDataDir(),
		SiteConfigs:     &File{Sites: make(map[string]SiteConfig)},
	}
}

// DefaultOutputDir returns the output root used when nothing else is
// configured: $SCRAPER_OUTPUT_DIR, or <tmp>/Web_Scrapes.
func DefaultOutputDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvOutputDir)); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), DefaultOutputDirName)
}

// XDGDataDir returns the XDG data directory for sitearchive.
// On Linux: ~/.local/share/sitearchive
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitearchive.
// On Linux: ~/.config/sitearchive
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found as one of the sentinel errors in this package.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if !IsHTTPAddress(target) {
			return ErrInvalidTarget
		}
	}
	return c.ValidateSettings()
}

// ValidateSettings checks every field except Targets. It is used when
// targets arrive later, per request.
func (c *Config) ValidateSettings() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.PolitenessDelay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.LogTailSize <= 0 {
		return ErrInvalidLogTailSize
	}
	return nil
}

// DepthFor returns the crawl depth for a base address, honouring a
// site-specific override from the config file.
func (c *Config) DepthFor(baseURL string) int {
	if c.SiteConfigs == nil {
		return c.MaxDepth
	}
	if site := c.SiteConfigs.GetSiteConfig(baseURL); site.Depth > 0 {
		return site.Depth
	}
	return c.MaxDepth
}

// IsHTTPAddress reports whether s starts with http:// or https://.
func IsHTTPAddress(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ParseTargets splits user input on commas and newlines, trims each entry
// and drops empty ones. Order is preserved; duplicates are removed.
func ParseTargets(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	seen := make(map[string]bool, len(fields))
	targets := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		targets = append(targets, f)
	}
	return targets
}
