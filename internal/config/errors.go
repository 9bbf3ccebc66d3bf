package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and File.Resolve, and can be
// checked with errors.Is.
var (
	// ErrNoSites is returned when no site is left to crawl after loading
	// the configuration file and applying the site filter.
	ErrNoSites = errors.New("no sites to crawl: add sites to the configuration file or check --site")

	// ErrInvalidMaxPages is returned when the per-site page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidRenderHandles is returned when the render handle count is not positive.
	ErrInvalidRenderHandles = errors.New("invalid render handles: must be positive")

	// ErrInvalidTimeout is returned when the render timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSeedAttempts is returned when the seed attempt count is not positive.
	ErrInvalidSeedAttempts = errors.New("invalid seed attempts: must be positive")

	// ErrInvalidWaitCondition is returned for an unknown page wait condition.
	ErrInvalidWaitCondition = errors.New("invalid wait condition: must be load, domcontentloaded or networkidle")

	// ErrUnknownEngine is returned for an unknown render engine name.
	ErrUnknownEngine = errors.New("unknown engine: must be chromedp, playwright or http")

	// ErrUnknownBrowser is returned for an unknown playwright browser name.
	ErrUnknownBrowser = errors.New("unknown browser: must be chromium, firefox or webkit")

	// ErrInvalidRate is returned when the request rate is negative.
	ErrInvalidRate = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidScrollSteps is returned when the scroll step count is negative.
	ErrInvalidScrollSteps = errors.New("invalid scroll steps: must be non-negative")

	// ErrEmptyOutput is returned when the JSON output path is empty.
	ErrEmptyOutput = errors.New("output path must not be empty")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified for the summary report.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidSiteURL is returned when a site or seed URL is not an
	// absolute http(s) URL with a registrable domain.
	ErrInvalidSiteURL = errors.New("invalid site url")

	// ErrSeedOutOfScope is returned when a seed URL is on a different
	// registrable domain than its site.
	ErrSeedOutOfScope = errors.New("seed url is outside the site's domain")

	// ErrDuplicateSite is returned when two sites share the same base URL.
	ErrDuplicateSite = errors.New("duplicate site")

	// ErrInvalidPattern is returned when a site pattern cannot be compiled
	// or has an unknown kind.
	ErrInvalidPattern = errors.New("invalid site pattern")
)
