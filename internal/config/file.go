package config

import (
	"fmt"
	"maps"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/nao1215/productscan/internal/classify"
	"github.com/nao1215/productscan/internal/model"
	"github.com/nao1215/productscan/internal/scope"
)

// PatternConfig is one rule of a site's pattern table.
type PatternConfig struct {
	// Kind is "product" or "category".
	Kind string `yaml:"kind"`

	// Match is a regular expression searched in the lowercased URL.
	Match string `yaml:"match"`
}

// SiteConfig is one site entry of the configuration file.
type SiteConfig struct {
	// URL is the site's base URL. It is the key of the JSON output and
	// defines the crawl scope through its registrable domain.
	URL string `yaml:"url"`

	// Seeds are the crawl entry points. If empty, URL is the only seed.
	Seeds []string `yaml:"seeds,omitempty"`

	// Patterns is the ordered pattern table of the site.
	Patterns []PatternConfig `yaml:"patterns,omitempty"`

	// MaxPages overrides the page budget for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Headers are extra HTTP headers sent by this site's session.
	// They are merged over the default headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are glob patterns matched against the URL path.
	// Matching links are never enqueued. Replaces the default list when set.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowOther overrides whether links classified as other are followed.
	FollowOther *bool `yaml:"followOther,omitempty"`

	// UserAgent overrides the session user agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// Defaults holds values applied to every site unless overridden.
type Defaults struct {
	MaxPages       int               `yaml:"maxPages,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	IgnorePatterns []string          `yaml:"ignorePatterns,omitempty"`
	FollowOther    *bool             `yaml:"followOther,omitempty"`
	UserAgent      string            `yaml:"userAgent,omitempty"`
	Locale         string            `yaml:"locale,omitempty"`
}

// HeuristicConfig configures the generic product heuristic.
type HeuristicConfig struct {
	// Hints replaces the default keyword list when non-empty.
	Hints []string `yaml:"hints,omitempty"`

	// Threshold is the minimum score for a product. Zero means the default.
	Threshold int `yaml:"threshold,omitempty"`
}

// File represents the structure of the .productscan configuration file.
type File struct {
	Defaults  Defaults        `yaml:"defaults,omitempty"`
	Heuristic HeuristicConfig `yaml:"heuristic,omitempty"`
	Sites     []SiteConfig    `yaml:"sites"`
}

// Site is a validated, ready-to-crawl site record.
type Site struct {
	// URL is the configured base URL, used as the output key.
	URL string

	// Key selects the pattern table (e.g. "tatacliq").
	Key string

	// Domain is the registrable domain that scopes the crawl.
	Domain string

	// Seeds are absolute URLs inside Domain.
	Seeds []string

	// Rules is the site's compiled pattern table.
	Rules classify.Table

	// MaxPages is the page budget of this site.
	MaxPages int

	// Headers are extra request headers for the session.
	Headers map[string]string

	// UserAgent and Locale form the session profile with Headers.
	UserAgent string
	Locale    string

	// IgnorePatterns are glob patterns of URL paths that are never enqueued.
	IgnorePatterns []string

	// FollowOther enqueues links classified as other.
	FollowOther bool
}

// Matches reports whether the site is selected by a --site filter entry.
// An entry matches the site key, the registrable domain or the base URL.
func (s Site) Matches(filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	return filter == s.Key || filter == s.Domain || filter == strings.ToLower(s.URL)
}

// Resolve validates the file and returns the sites to crawl, in file order.
// Values are taken from the site entry first, then from Defaults, then from
// cfg. Sites not selected by cfg.SiteFilter are dropped.
func (f *File) Resolve(cfg *Config) ([]Site, error) {
	if f.Heuristic.Threshold < 0 {
		return nil, fmt.Errorf("%w: %d", classify.ErrInvalidThreshold, f.Heuristic.Threshold)
	}

	seen := make(map[string]bool)
	sites := make([]Site, 0, len(f.Sites))

	for _, sc := range f.Sites {
		site, err := f.resolveSite(sc, cfg)
		if err != nil {
			return nil, err
		}
		if seen[site.URL] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSite, site.URL)
		}
		seen[site.URL] = true

		if len(cfg.SiteFilter) > 0 && !slices.ContainsFunc(cfg.SiteFilter, site.Matches) {
			continue
		}
		sites = append(sites, site)
	}

	if len(sites) == 0 {
		return nil, ErrNoSites
	}
	return sites, nil
}

func (f *File) resolveSite(sc SiteConfig, cfg *Config) (Site, error) {
	base := strings.TrimSpace(sc.URL)
	if err := validateHTTPURL(base); err != nil {
		return Site{}, err
	}
	domain := scope.RegistrableDomain(base)

	seeds := sc.Seeds
	if len(seeds) == 0 {
		seeds = []string{base}
	}
	resolvedSeeds := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		seed = strings.TrimSpace(seed)
		if err := validateHTTPURL(seed); err != nil {
			return Site{}, err
		}
		if !scope.InScope(domain, seed) {
			return Site{}, fmt.Errorf("%w: %s is not in %s", ErrSeedOutOfScope, seed, domain)
		}
		resolvedSeeds = append(resolvedSeeds, seed)
	}

	rules := make(classify.Table, 0, len(sc.Patterns))
	for _, p := range sc.Patterns {
		kind, err := model.ParseClassification(p.Kind)
		if err != nil {
			return Site{}, fmt.Errorf("%w for %s: %w", ErrInvalidPattern, base, err)
		}
		rule, err := classify.NewRule(kind, p.Match)
		if err != nil {
			return Site{}, fmt.Errorf("%w for %s: %w", ErrInvalidPattern, base, err)
		}
		rules = append(rules, rule)
	}

	ignore := f.Defaults.IgnorePatterns
	if len(sc.IgnorePatterns) > 0 {
		ignore = sc.IgnorePatterns
	}
	for _, pattern := range ignore {
		if _, err := path.Match(pattern, ""); err != nil {
			return Site{}, fmt.Errorf("%w for %s: ignore pattern %q: %w", ErrInvalidPattern, base, pattern, err)
		}
	}

	return Site{
		URL:            base,
		Key:            scope.SiteKey(base),
		Domain:         domain,
		Seeds:          resolvedSeeds,
		Rules:          rules,
		MaxPages:       firstPositive(sc.MaxPages, f.Defaults.MaxPages, cfg.MaxPages),
		Headers:        mergeHeaders(f.Defaults.Headers, sc.Headers),
		UserAgent:      firstNonEmpty(sc.UserAgent, f.Defaults.UserAgent, cfg.UserAgent),
		Locale:         firstNonEmpty(f.Defaults.Locale, cfg.Locale),
		IgnorePatterns: slices.Clone(ignore),
		FollowOther:    boolOr(sc.FollowOther, boolOr(f.Defaults.FollowOther, true)),
	}, nil
}

// ClassifierHeuristic returns the heuristic configured in the file, or the
// default heuristic when no hints are given.
func (f *File) ClassifierHeuristic() classify.Heuristic {
	h := classify.DefaultHeuristic()
	if len(f.Heuristic.Hints) > 0 {
		h.Hints = slices.Clone(f.Heuristic.Hints)
	}
	if f.Heuristic.Threshold > 0 {
		h.Threshold = f.Heuristic.Threshold
	}
	return h
}

// NewClassifier builds a classifier holding the pattern tables of sites.
// Sites sharing a key have their rules concatenated in site order.
func NewClassifier(sites []Site, h classify.Heuristic) *classify.Classifier {
	tables := make(map[string]classify.Table)
	for _, s := range sites {
		if len(s.Rules) == 0 {
			continue
		}
		tables[s.Key] = append(tables[s.Key], s.Rules...)
	}
	return classify.New(classify.WithTables(tables), classify.WithHeuristic(h))
}

// validateHTTPURL checks that raw is an absolute http(s) URL with a
// registrable domain.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSiteURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidSiteURL, raw)
	}
	if scope.RegistrableDomain(raw) == "" {
		return fmt.Errorf("%w %q: no registrable domain", ErrInvalidSiteURL, raw)
	}
	return nil
}

func mergeHeaders(defaults, site map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(site))
	maps.Copy(merged, defaults)
	maps.Copy(merged, site)
	return merged
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
