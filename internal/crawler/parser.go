package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkExtractor returns the raw href values of the anchors in an HTML
// document, in document order.
type LinkExtractor interface {
	ExtractLinks(html string) ([]string, error)
}

// Parser extracts anchors with goquery.
type Parser struct{}

var _ LinkExtractor = (*Parser)(nil)

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ExtractLinks returns the href of every <a> element that has one.
// Empty and whitespace-only values are dropped; everything else is
// returned as written so the caller can resolve it against the page URL.
func (p *Parser) ExtractLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		links = append(links, href)
	})
	return links, nil
}

// resolveURL resolves href against base. It returns false for hrefs that
// never lead to a page (script, mail, phone and data links, bare fragments)
// and for anything that is not http or https after resolution.
func resolveURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return "", false
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return resolved.String(), true
}
