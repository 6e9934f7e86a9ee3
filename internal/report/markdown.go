package report

import (
	"io"
	"strconv"

	"github.com/nao1215/gophermirror/internal/crawler"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run result in Markdown format.
func (w *MarkdownWriter) Write(result *crawler.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeFailures(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *crawler.Result) {
	md.H1("Gopher Mirror Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + result.StartURL + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", result.Duration().String()},
			{"Status", w.getStatusText(result)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on the run state.
func (w *MarkdownWriter) getStatusText(result *crawler.Result) string {
	if result.Failed() {
		return "⚠️ Completed with " + strconv.Itoa(len(result.Failures)) + " failure(s)"
	}
	return "✅ Complete"
}

// writeSummary writes the fetch and persistence counters.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *crawler.Result) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(result.Fetched)},
			{"Menus", strconv.Itoa(result.MenusFetched)},
			{"Files", strconv.Itoa(result.FilesFetched)},
			{"Saved", strconv.Itoa(result.Saved)},
			{"Skipped (existing)", strconv.Itoa(result.SkippedExisting)},
			{"Skipped (visited)", strconv.Itoa(result.SkippedVisited)},
			{"Filtered entries", strconv.Itoa(result.Filtered)},
			{"Bytes fetched", strconv.FormatInt(result.BytesFetched, 10)},
		},
	})
	md.PlainText("")

	if result.Fetched > 0 {
		w.writePieChart(md, result)
	}
}

// writePieChart writes a mermaid pie chart of fetch outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *crawler.Result) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Fetch Outcomes"),
		piechart.WithShowData(true),
	)

	if result.Saved > 0 {
		chart.LabelAndIntValue("Saved", uint64(result.Saved))
	}
	if result.SkippedExisting > 0 {
		chart.LabelAndIntValue("Skipped existing", uint64(result.SkippedExisting))
	}
	if len(result.Failures) > 0 {
		chart.LabelAndIntValue("Failed", uint64(len(result.Failures)))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes the failure listing, if any.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *crawler.Result) {
	if len(result.Failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		rows = append(rows, []string{"`" + f.URL + "`", f.Reason})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")

	md.Warningf("%d resource(s) could not be mirrored.", len(result.Failures))
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("Report generated by [gophermirror](https://github.com/nao1215/gophermirror)")
}
