// Package report writes the results of a run.
//
// This package contains writers for different output formats:
//   - ProductWriter: the site to product-URL map, the primary output
//   - JSONWriter: the full run report with statistics for tool integration
//   - SimpleWriter: human-readable text output for terminal display
//   - MarkdownWriter: a Markdown summary for sharing
//   - ExcelWriter: an .xlsx workbook with a summary and a product sheet
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
