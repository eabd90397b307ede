package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitearchive/internal/model"
)

// MarkdownWriter outputs reports in Markdown format. The CLI writes it as
// summary.md into the session directory on request.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.SessionReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeDiscovery(md, report)
	w.writeExtraction(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SessionReport) {
	md.H1("Site Archive Report")
	md.PlainText("")

	rows := [][]string{
		{"Base URL", "`" + report.BaseURL + "`"},
		{"Date", report.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"Status", statusText(report)},
	}
	if report.OutputDir != "" {
		rows = append(rows, []string{"Output", "`" + report.OutputDir + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(report *model.SessionReport) string {
	switch status(report) {
	case "cancelled":
		return "⚠️ Cancelled (partial results)"
	case "error":
		return "❌ Error - " + report.ErrorMessage
	case "partial":
		return "⚠️ Completed with failures"
	default:
		return "✅ Complete"
	}
}

func (w *MarkdownWriter) writeDiscovery(md *markdown.Markdown, report *model.SessionReport) {
	d := report.Discovery
	if d == nil {
		return
	}

	md.H2("Discovery")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Max depth", strconv.Itoa(d.MaxDepth)},
			{"Pages checked", strconv.Itoa(d.Stats.Checked)},
			{"Links found", strconv.Itoa(d.Stats.Found)},
			{"Failed requests", strconv.Itoa(d.Stats.Failed)},
			{"Elapsed", d.Duration().Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if d.Truncated {
		md.Warningf("Discovery stopped early; the link list is partial.")
		md.PlainText("")
	}
	if d.Empty() {
		md.Note("No links were discovered.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeExtraction(md *markdown.Markdown, report *model.SessionReport) {
	s := report.Summary
	if s == nil {
		return
	}

	md.H2("Extraction")
	md.PlainText("")

	if s.Attempted > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Extraction Results"),
			piechart.WithShowData(true),
		)
		if s.Succeeded > 0 {
			chart.LabelAndIntValue("Succeeded", uint64(s.Succeeded))
		}
		if n := s.FailedCount(); n > 0 {
			chart.LabelAndIntValue("Failed", uint64(n))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if s.FailedCount() > 0 {
		md.Warningf("%d of %d pages could not be extracted.", s.FailedCount(), s.Attempted)
	} else {
		md.Tip("Every selected page was extracted.")
	}
	md.PlainText("")

	if len(s.Results) == 0 {
		return
	}

	rows := make([][]string, len(s.Results))
	for i, r := range s.Results {
		outcome := "✅"
		detail := r.Rule
		if !r.Succeeded() {
			outcome = "❌ " + string(r.Reason)
			detail = r.Detail
		}
		if detail == "" {
			detail = "-"
		}
		rows[i] = []string{
			truncateString(r.URL, 60),
			outcome,
			truncateString(detail, 50),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Result", "Selector / Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitearchive](https://github.com/nao1215/sitearchive)*")
}
