package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitearchive/internal/model"
)

// ruleWidth is the width of the separator lines.
const ruleWidth = 70

// SimpleWriter outputs a human-readable text summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// showLinks lists every discovered address, not just the count.
	showLinks bool

	// verbose lists every extraction result, not just the failures.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowLinks lists every discovered address.
func WithShowLinks(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showLinks = show
	}
}

// WithVerbose lists every extraction result.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.SessionReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeDiscovery(&sb, report)
	w.writeExtraction(&sb, report)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SessionReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "SITEARCHIVE: %s\n", report.BaseURL)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Status:  %s\n", status(report))
	if report.ErrorMessage != "" {
		fmt.Fprintf(sb, "Error:   %s\n", report.ErrorMessage)
	}
	if report.OutputDir != "" {
		fmt.Fprintf(sb, "Output:  %s\n", report.OutputDir)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDiscovery(sb *strings.Builder, report *model.SessionReport) {
	d := report.Discovery
	if d == nil {
		return
	}

	sb.WriteString("DISCOVERY\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Pages checked: %d\n", d.Stats.Checked)
	fmt.Fprintf(sb, "  Links found:   %d\n", d.Stats.Found)
	fmt.Fprintf(sb, "  Failed:        %d\n", d.Stats.Failed)
	fmt.Fprintf(sb, "  Elapsed:       %s\n", d.Duration().Round(time.Millisecond))
	if d.Truncated {
		sb.WriteString("  (stopped early; results are partial)\n")
	}
	if w.showLinks {
		for i, link := range d.Links {
			fmt.Fprintf(sb, "  %3d. %s\n", i+1, link)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeExtraction(sb *strings.Builder, report *model.SessionReport) {
	s := report.Summary
	if s == nil {
		return
	}

	sb.WriteString("EXTRACTION\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Extracted %d of %d pages\n", s.Succeeded, s.Attempted)

	if w.verbose {
		for _, r := range s.Results {
			if r.Succeeded() {
				fmt.Fprintf(sb, "  [+] %s -> %s\n", r.URL, r.Path)
			}
		}
	}
	if s.FailedCount() > 0 {
		sb.WriteString("  Failed:\n")
		for _, r := range s.Results {
			if !r.Succeeded() {
				fmt.Fprintf(sb, "  [!] %s (%s)\n", r.URL, r.Reason)
			}
		}
	}
	sb.WriteString("\n")
}
