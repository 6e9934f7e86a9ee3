// Package report generates mirror run reports in multiple formats.
//
// Three writers are provided:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: machine-readable output for tool integration
//   - MarkdownWriter: GitHub-flavored markdown for documentation
//
// All writers consume the crawler.Result produced by a mirror run.
package report
