// Package config provides configuration structures and utilities for sitearchive.
// It defines fetch and pacing defaults, environment overrides, and the
// optional YAML file holding per-site crawl settings.
package config
