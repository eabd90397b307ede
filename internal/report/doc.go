// Package report writes session reports for people and tools.
//
// Writers:
//   - SimpleWriter: text summary for terminal display
//   - JSONWriter and FullJSONWriter: structured JSON output
//   - MarkdownWriter: a Markdown document, written as summary.md
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
