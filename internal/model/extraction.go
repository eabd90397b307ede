package model

import "time"

// Reason classifies why an extraction job failed.
type Reason string

// Failure reasons.
const (
	// ReasonRequestError is a network error, timeout or non-2xx status.
	ReasonRequestError Reason = "request-error"

	// ReasonWriteError means the artifact could not be written.
	ReasonWriteError Reason = "write-error"

	// ReasonUnexpectedError is any other failure, including a recovered panic.
	ReasonUnexpectedError Reason = "unexpected-error"

	// ReasonCancelled means the batch was cancelled before the job ran.
	ReasonCancelled Reason = "cancelled"
)

// ExtractionResult is the outcome of one extraction job.
// A job succeeded if and only if Reason is empty.
type ExtractionResult struct {
	// URL is the address that was extracted.
	URL string `json:"url"`

	// Path is the artifact file written on success.
	Path string `json:"path,omitempty"`

	// Rule is the content selector that matched, or empty when the
	// sentinel placeholder was written.
	Rule string `json:"rule,omitempty"`

	// Reason classifies a failure.
	Reason Reason `json:"reason,omitempty"`

	// Detail is a human readable description of a failure.
	Detail string `json:"detail,omitempty"`
}

// Succeeded reports whether the job wrote its artifact.
func (r ExtractionResult) Succeeded() bool {
	return r.Reason == ""
}

// Summary aggregates the results of one extraction batch.
type Summary struct {
	// BaseURL is the base address the batch was started for.
	BaseURL string `json:"base_url,omitempty"`

	// OutputDir is the session directory the artifacts were written to.
	OutputDir string `json:"output_dir"`

	// Attempted is the number of jobs run.
	Attempted int `json:"attempted"`

	// Succeeded is the number of artifacts written.
	Succeeded int `json:"succeeded"`

	// Failed lists the addresses that could not be extracted, in job order,
	// so that a user can retry them.
	Failed []string `json:"failed"`

	// Results holds every job outcome in job order.
	Results []ExtractionResult `json:"results"`

	// StartedAt and FinishedAt bound the batch.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewSummary creates an empty Summary for a batch writing to outputDir.
func NewSummary(baseURL, outputDir string) *Summary {
	return &Summary{
		BaseURL:   baseURL,
		OutputDir: outputDir,
		Failed:    make([]string, 0),
		Results:   make([]ExtractionResult, 0),
		StartedAt: time.Now(),
	}
}

// Add records a job outcome.
func (s *Summary) Add(r ExtractionResult) {
	s.Attempted++
	s.Results = append(s.Results, r)
	if r.Succeeded() {
		s.Succeeded++
		return
	}
	s.Failed = append(s.Failed, r.URL)
}

// FailedCount returns the number of failed jobs.
func (s *Summary) FailedCount() int {
	return len(s.Failed)
}

// Finish stamps the end time of the batch.
func (s *Summary) Finish() {
	s.FinishedAt = time.Now()
}
