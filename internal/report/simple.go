package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/productscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sites without products are listed in the
	// product section.
	showEmpty bool

	// verbose lists the product URLs of each site.
	verbose bool

	// maxProducts limits the product URLs listed per site in verbose mode.
	maxProducts int

	printer *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show sites without products.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables listing product URLs.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithSimpleMaxProducts sets how many product URLs are listed per site.
func WithSimpleMaxProducts(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n >= 0 {
			w.maxProducts = n
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:  newBaseWriter(output),
		maxProducts: DefaultMaxListedProducts,
		printer:     message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSites(&sb, report)
	if w.verbose {
		w.writeProducts(&sb, report)
	}
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       PRODUCTSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(w.printer.Sprintf("Run Date:       %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(w.printer.Sprintf("Duration:       %s\n", report.Duration().Round(time.Second)))
	sb.WriteString(w.printer.Sprintf("Sites:          %d\n", len(report.Sites)))
	sb.WriteString(w.printer.Sprintf("Product URLs:   %d\n", report.TotalProducts()))
	sb.WriteString("\n")
}

// writeSites writes one line per site.
func (w *SimpleWriter) writeSites(sb *strings.Builder, report *model.RunReport) {
	writeSection(sb, "SITES")

	if len(report.Sites) == 0 {
		sb.WriteString("  No sites crawled\n\n")
		return
	}

	for _, site := range report.Sites {
		marker := "+"
		if site.Failed() {
			marker = "!"
		}
		sb.WriteString(w.printer.Sprintf("  [%s] %-20s %8d products  %6d visited  %4d failed renders\n",
			marker,
			truncateString(siteTitle(site), 20),
			len(site.Products),
			site.Visited,
			site.RenderFailures,
		))
		if site.Failed() {
			sb.WriteString(w.printer.Sprintf("      error: %s\n", site.Error))
		}
	}
	sb.WriteString("\n")
}

// writeProducts lists the product URLs of each site.
func (w *SimpleWriter) writeProducts(sb *strings.Builder, report *model.RunReport) {
	writeSection(sb, "PRODUCT URLS")

	for _, site := range report.Sites {
		if len(site.Products) == 0 && !w.showEmpty {
			continue
		}

		sb.WriteString(w.printer.Sprintf("%s (%s)\n", siteTitle(site), site.URL))
		if len(site.Products) == 0 {
			sb.WriteString("  No product URLs found\n\n")
			continue
		}

		listed := site.Products
		if len(listed) > w.maxProducts {
			listed = listed[:w.maxProducts]
		}
		for _, u := range listed {
			sb.WriteString("  - ")
			sb.WriteString(u)
			sb.WriteString("\n")
		}
		if rest := len(site.Products) - len(listed); rest > 0 {
			sb.WriteString(w.printer.Sprintf("  ... and %d more\n", rest))
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the closing summary line.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	failed := len(report.FailedSites())
	if failed > 0 {
		sb.WriteString(w.printer.Sprintf("Completed with %d failed site(s).\n", failed))
	} else {
		sb.WriteString("Completed successfully.\n")
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
