package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/productscan/internal/model"
)

// ProductWriter writes the site to product-URL map: a JSON object keyed by
// the configured site URL, in site order, whose values are the sorted
// product URLs of the site. Failed sites map to an empty array.
type ProductWriter struct {
	baseWriter

	// siteURLs are written first, in order, even without a result.
	siteURLs []string
}

// ProductWriterOption configures a ProductWriter.
type ProductWriterOption func(*ProductWriter)

// WithSiteURLs lists the configured sites. Each gets a key, mapped to an
// empty array when the run never reached it.
func WithSiteURLs(urls []string) ProductWriterOption {
	return func(w *ProductWriter) {
		w.siteURLs = urls
	}
}

// NewProductWriter creates a ProductWriter that outputs to the given writer.
func NewProductWriter(output io.Writer, opts ...ProductWriterOption) *ProductWriter {
	w := &ProductWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the product map.
func (w *ProductWriter) Write(report *model.RunReport) (int, error) {
	products := make(map[string][]string, len(report.Sites))
	keys := make([]string, 0, len(w.siteURLs)+len(report.Sites))
	for _, u := range w.siteURLs {
		if _, dup := products[u]; !dup {
			products[u] = nil
			keys = append(keys, u)
		}
	}
	for _, site := range report.Sites {
		current, known := products[site.URL]
		if !known {
			keys = append(keys, site.URL)
		}
		if current == nil {
			products[site.URL] = site.Products
		}
	}

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, u := range keys {
		key, err := encodeJSON(u, "", "")
		if err != nil {
			return 0, err
		}
		list := products[u]
		if list == nil {
			list = []string{}
		}
		value, err := encodeJSON(list, "  ", "  ")
		if err != nil {
			return 0, err
		}

		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if len(keys) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	return w.output.Write(buf.Bytes())
}

// ProductMap returns the product lists of report keyed by site URL.
func ProductMap(report *model.RunReport) map[string][]string {
	m := make(map[string][]string, len(report.Sites))
	for _, site := range report.Sites {
		products := site.Products
		if products == nil {
			products = []string{}
		}
		m[site.URL] = products
	}
	return m
}

// JSONWriter outputs the full run report in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// version is the productscan version recorded in the output.
	version string

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the productscan version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps the run report with derived totals.
type JSONReport struct {
	// Version is the productscan version that generated this report.
	Version string `json:"version,omitempty"`

	// DurationMS is the wall-clock time of the run in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// TotalProducts is the number of product URLs across all sites.
	TotalProducts int `json:"total_products"`

	// FailedSites is the number of sites with a site-level error.
	FailedSites int `json:"failed_sites"`

	// Report is the full run report.
	Report *model.RunReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper.
func NewJSONReport(report *model.RunReport, version string) *JSONReport {
	return &JSONReport{
		Version:       version,
		DurationMS:    report.Duration().Milliseconds(),
		TotalProducts: report.TotalProducts(),
		FailedSites:   len(report.FailedSites()),
		Report:        report,
	}
}

// Write outputs the wrapped run report.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	prefix, indent := "", ""
	if w.indent {
		prefix, indent = w.indentPrefix, w.indentString
	}
	data, err := encodeJSON(NewJSONReport(report, w.version), prefix, indent)
	if err != nil {
		return 0, err
	}
	// Add trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}

// encodeJSON marshals v without escaping HTML characters, which are common
// in URL query strings. The result has no trailing newline.
func encodeJSON(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if prefix != "" || indent != "" {
		enc.SetIndent(prefix, indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
