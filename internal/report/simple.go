package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/gophermirror/internal/crawler"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showResources enables the per-resource listing in the output.
	showResources bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowResources enables the per-resource listing.
func WithShowResources(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showResources = show
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

// Write outputs the run result in human-readable format.
func (w *SimpleWriter) Write(result *crawler.Result) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	if w.showResources {
		w.writeResources(&sb, result)
	}
	w.writeFailures(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *crawler.Result) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        GOPHER MIRROR REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Start URL:  %s\n", result.StartURL))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", result.Duration().Round(10*time.Millisecond)))

	if result.Failed() {
		sb.WriteString(fmt.Sprintf("Status:     COMPLETED WITH %d FAILURE(S)\n", len(result.Failures)))
	} else {
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the fetch and persistence counters.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *crawler.Result) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Fetched:           %d (%d menus, %d files)\n",
		result.Fetched, result.MenusFetched, result.FilesFetched))
	sb.WriteString(fmt.Sprintf("  Saved:             %d\n", result.Saved))
	sb.WriteString(fmt.Sprintf("  Skipped existing:  %d\n", result.SkippedExisting))
	sb.WriteString(fmt.Sprintf("  Skipped visited:   %d\n", result.SkippedVisited))
	sb.WriteString(fmt.Sprintf("  Filtered entries:  %d\n", result.Filtered))
	sb.WriteString(fmt.Sprintf("  Bytes fetched:     %d\n", result.BytesFetched))
	sb.WriteString("\n")
}

// writeResources writes the per-resource listing.
func (w *SimpleWriter) writeResources(sb *strings.Builder, result *crawler.Result) {
	if len(result.Resources) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RESOURCES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, res := range result.Resources {
		sb.WriteString(fmt.Sprintf("  [%s] %-8s %s (%d bytes)\n",
			res.ItemType, res.Status, res.URL, res.Size))
	}
	sb.WriteString("\n")
}

// writeFailures writes the failure listing, if any.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, result *crawler.Result) {
	if len(result.Failures) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, f := range result.Failures {
		sb.WriteString(fmt.Sprintf("  [!] %s\n", f.URL))
		sb.WriteString(fmt.Sprintf("      %s\n", f.Reason))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by gophermirror\n")
	sb.WriteString("https://github.com/nao1215/gophermirror\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
