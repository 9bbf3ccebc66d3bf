package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/productscan/internal/model"
)

// DefaultMaxListedProducts is the number of product URLs listed per site
// in human-readable reports.
const DefaultMaxListedProducts = 50

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter

	// maxProducts limits the product URLs listed per site; 0 lists none.
	maxProducts int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownMaxProducts sets how many product URLs are listed per site.
func WithMarkdownMaxProducts(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if n >= 0 {
			w.maxProducts = n
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:  newBaseWriter(output),
		maxProducts: DefaultMaxListedProducts,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	for _, site := range report.Sites {
		w.writeSite(md, site)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Product URL Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Second).String()},
			{"Sites", strconv.Itoa(len(report.Sites))},
			{"Product URLs", strconv.Itoa(report.TotalProducts())},
		},
	})
	md.PlainText("")
}

// writeSummary writes the per-site summary table, chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Sites))
	for _, site := range report.Sites {
		rows = append(rows, []string{
			siteTitle(site),
			strconv.Itoa(len(site.Products)),
			strconv.Itoa(site.Visited),
			strconv.Itoa(site.RenderFailures),
			statusText(site),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Site", "Products", "Visited", "Render Failures", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.TotalProducts() > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of products per site.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Product URLs per Site"),
		piechart.WithShowData(true),
	)
	for _, site := range report.Sites {
		if len(site.Products) > 0 {
			chart.LabelAndIntValue(siteTitle(site), uint64(len(site.Products)))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing failed or empty sites.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	failed := report.FailedSites()
	empty := 0
	for _, site := range report.Sites {
		if !site.Failed() && len(site.Products) == 0 {
			empty++
		}
	}

	switch {
	case len(report.Sites) > 0 && len(failed) == len(report.Sites):
		md.Cautionf("Every site failed. %d site(s) produced no product URLs.", len(failed))
	case len(failed) > 0:
		md.Warningf("%d site(s) failed and contributed an empty list.", len(failed))
	case empty > 0:
		md.Importantf("%d site(s) were crawled but no product URLs were found.", empty)
	default:
		md.Tip("All sites were crawled successfully.")
	}
	md.PlainText("")
}

// writeSite writes the section of one site.
func (w *MarkdownWriter) writeSite(md *markdown.Markdown, site *model.SiteResult) {
	md.H2(siteTitle(site))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", site.URL},
			{"Product URLs", strconv.Itoa(len(site.Products))},
			{"Pages Visited", strconv.Itoa(site.Visited)},
			{"Render Attempts", strconv.Itoa(site.RenderAttempts)},
			{"Render Failures", strconv.Itoa(site.RenderFailures)},
			{"Duration", site.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if site.Failed() {
		md.Details("Error", site.Error)
		md.PlainText("")
	}

	if len(site.Products) == 0 || w.maxProducts == 0 {
		return
	}

	listed := site.Products
	if len(listed) > w.maxProducts {
		listed = listed[:w.maxProducts]
	}
	md.BulletList(listed...)
	if rest := len(site.Products) - len(listed); rest > 0 {
		md.PlainTextf("... and %d more", rest)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [productscan](https://github.com/nao1215/productscan)*")
}

// siteTitle returns the display name of a site, e.g. "Tatacliq".
func siteTitle(site *model.SiteResult) string {
	if site.SiteKey == "" {
		return site.URL
	}
	return cases.Title(language.English).String(site.SiteKey)
}

// statusText returns a short status of a site.
func statusText(site *model.SiteResult) string {
	if site.Failed() {
		return fmt.Sprintf("failed: %s", truncateString(site.Error, 60))
	}
	return "ok"
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
