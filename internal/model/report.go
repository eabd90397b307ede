package model

import "time"

// SessionReport collects everything one pipeline run produced for a single
// base address. Steps fill it in order: discovery, selection, output
// directory, extraction.
type SessionReport struct {
	// BaseURL is the base address; it is also the scope prefix.
	BaseURL string `json:"base_url"`

	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at"`

	// Discovery is the discovery result. Nil until the discover step ran.
	Discovery *DiscoveryResult `json:"discovery,omitempty"`

	// Selected holds the addresses chosen for extraction.
	Selected []string `json:"selected,omitempty"`

	// OutputDir is the session directory artifacts are written to.
	OutputDir string `json:"output_dir,omitempty"`

	// Summary is the extraction summary. Nil until the extract step ran.
	Summary *Summary `json:"summary,omitempty"`

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true if the run was interrupted.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error is the error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a string for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewSessionReport creates an empty report for baseURL.
func NewSessionReport(baseURL string) *SessionReport {
	return &SessionReport{
		BaseURL:        baseURL,
		CreatedAt:      time.Now(),
		PerformedSteps: make([]string, 0),
	}
}

// SetError records err as the error that stopped the run.
func (r *SessionReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Links returns the discovered addresses, or nil before discovery.
func (r *SessionReport) Links() []string {
	if r.Discovery == nil {
		return nil
	}
	return r.Discovery.Links
}
