package model

import "time"

// DiscoveryStats counts the work of one discovery session.
type DiscoveryStats struct {
	// Checked is the number of pages fetched, successfully or not.
	Checked int `json:"checked"`

	// Found is the number of in-scope addresses discovered.
	Found int `json:"found"`

	// Failed is the number of fetches that failed.
	Failed int `json:"failed"`
}

// DiscoveryResult is the outcome of one discovery session.
type DiscoveryResult struct {
	// BaseURL is the start address of the session.
	BaseURL string `json:"base_url"`

	// Scope is the prefix every discovered address starts with.
	Scope string `json:"scope"`

	// Links holds the discovered addresses sorted by string.
	Links []string `json:"links"`

	// Stats counts checked pages, found links and failures.
	Stats DiscoveryStats `json:"stats"`

	// MaxDepth is the depth bound the session ran with.
	MaxDepth int `json:"max_depth"`

	// StartedAt and FinishedAt bound the session.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Truncated is true when the session stopped early, either because the
	// page cap was hit or because it was cancelled.
	Truncated bool `json:"truncated,omitempty"`
}

// Empty reports whether nothing reachable was discovered. Callers treat
// an empty result as "site unreachable".
func (r *DiscoveryResult) Empty() bool {
	return r == nil || len(r.Links) == 0
}

// Duration returns how long the session ran.
func (r *DiscoveryResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
