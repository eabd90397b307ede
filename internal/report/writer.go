package report

import (
	"io"

	"github.com/nao1215/sitearchive/internal/model"
)

// Writer writes a session report in one output format.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.SessionReport) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// It is used to print a summary to the terminal and keep a file copy.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.SessionReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status returns a one-word state of the session.
func status(report *model.SessionReport) string {
	switch {
	case report.Cancelled:
		return "cancelled"
	case report.ErrorMessage != "":
		return "error"
	case report.Summary == nil:
		return "discovered"
	case report.Summary.FailedCount() > 0:
		return "partial"
	default:
		return "complete"
	}
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
