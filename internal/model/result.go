package model

import (
	"slices"
	"time"
)

// SiteResult holds the outcome of crawling one site.
type SiteResult struct {
	// URL is the configured base URL of the site. It is the key used in the
	// JSON output.
	URL string `json:"url"`

	// SiteKey is the registrable domain without its public suffix
	// (e.g. "tatacliq").
	SiteKey string `json:"site_key"`

	// Products contains the distinct product URLs found, sorted.
	// It is never nil so that it encodes as [] rather than null.
	Products []string `json:"products"`

	// Visited is the number of URLs claimed by workers, including seeds.
	Visited int `json:"visited"`

	// RenderAttempts counts every render call, including seed retries.
	RenderAttempts int `json:"render_attempts"`

	// RenderFailures counts render calls that returned an error.
	RenderFailures int `json:"render_failures"`

	// StartedAt is when the site crawl began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the site crawl.
	Duration time.Duration `json:"duration"`

	// Error is the site-level failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// NewSiteResult creates an empty result for the given site.
func NewSiteResult(url, siteKey string) *SiteResult {
	return &SiteResult{
		URL:       url,
		SiteKey:   siteKey,
		Products:  []string{},
		StartedAt: time.Now(),
	}
}

// Failed reports whether the site crawl ended with a site-level error.
func (r *SiteResult) Failed() bool {
	return r.Error != ""
}

// SetProducts replaces the product list with a sorted, de-duplicated copy.
func (r *SiteResult) SetProducts(urls []string) {
	products := slices.Clone(urls)
	slices.Sort(products)
	r.Products = slices.Compact(products)
	if r.Products == nil {
		r.Products = []string{}
	}
}

// RunReport is the result of one run across all configured sites.
// Sites keeps the configured order.
type RunReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Sites      []*SiteResult `json:"sites"`
}

// NewRunReport creates an empty run report started now.
func NewRunReport() *RunReport {
	return &RunReport{
		StartedAt: time.Now(),
		Sites:     make([]*SiteResult, 0),
	}
}

// Add appends a site result.
func (r *RunReport) Add(result *SiteResult) {
	r.Sites = append(r.Sites, result)
}

// TotalProducts returns the number of product URLs across all sites.
func (r *RunReport) TotalProducts() int {
	total := 0
	for _, s := range r.Sites {
		total += len(s.Products)
	}
	return total
}

// FailedSites returns the sites that ended with a site-level error.
func (r *RunReport) FailedSites() []*SiteResult {
	var failed []*SiteResult
	for _, s := range r.Sites {
		if s.Failed() {
			failed = append(failed, s)
		}
	}
	return failed
}

// Duration returns the wall-clock time of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
