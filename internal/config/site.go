package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds site-specific configuration for one website.
type SiteConfig struct {
	// Headers are extra HTTP headers sent with every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Depth overrides the global discovery depth. Zero keeps the global value.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL path globs skipped during discovery.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict discovery to URL paths matching at least one glob.
	// Empty means every in-scope path is followed.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .sitearchive configuration file.
type File struct {
	// Sites maps a host (e.g. "docs.example.com") to its configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a base address, merged over
// the defaults. The address may be a full URL or a bare host; lookups try
// the exact string, the host, and the host without a leading "www.".
func (cf *File) GetSiteConfig(address string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	for _, key := range siteKeys(address) {
		if site, ok := cf.Sites[key]; ok {
			return mergeSiteConfig(cf.Defaults, site)
		}
	}
	return cf.Defaults
}

func siteKeys(address string) []string {
	keys := []string{address}
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return keys
	}
	keys = append(keys, u.Host)
	if trimmed := strings.TrimPrefix(u.Host, "www."); trimmed != u.Host {
		keys = append(keys, trimmed)
	}
	return keys
}

// mergeSiteConfig overlays non-zero fields of override onto defaults.
func mergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults

	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	if override.Depth > 0 {
		result.Depth = override.Depth
	}
	if len(override.Headers) > 0 {
		merged := make(map[string]string, len(defaults.Headers)+len(override.Headers))
		for k, v := range defaults.Headers {
			merged[k] = v
		}
		for k, v := range override.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}

	return result
}
