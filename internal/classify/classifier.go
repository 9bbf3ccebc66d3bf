package classify

import (
	"maps"
	"strings"

	"github.com/nao1215/productscan/internal/model"
)

// Classifier maps (URL, site key) to a classification.
type Classifier struct {
	tables    map[string]Table
	heuristic Heuristic
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTable registers the pattern table of a site key.
// Registering the same key twice replaces the earlier table.
func WithTable(siteKey string, table Table) Option {
	return func(c *Classifier) {
		c.tables[strings.ToLower(siteKey)] = table
	}
}

// WithTables registers several pattern tables at once.
func WithTables(tables map[string]Table) Option {
	return func(c *Classifier) {
		for k, t := range tables {
			c.tables[strings.ToLower(k)] = t
		}
	}
}

// WithHeuristic replaces the generic fallback heuristic.
// Hints are lowercased and a non-positive threshold becomes DefaultThreshold.
func WithHeuristic(h Heuristic) Option {
	return func(c *Classifier) {
		c.heuristic = h
	}
}

// New creates a Classifier. Without options it has no pattern tables and
// uses DefaultHeuristic.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		tables:    make(map[string]Table),
		heuristic: DefaultHeuristic(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.heuristic = c.heuristic.normalize()
	return c
}

// Classify returns Product, Category or Other for rawURL.
//
// Product rules of the site's table are tried first, then its category
// rules. When neither matches, or the site has no table, the heuristic
// decides between Product and Other.
func (c *Classifier) Classify(rawURL, siteKey string) model.Classification {
	lower := strings.ToLower(rawURL)

	if table, ok := c.tables[strings.ToLower(siteKey)]; ok {
		if table.match(model.Product, lower) {
			return model.Product
		}
		if table.match(model.Category, lower) {
			return model.Category
		}
	}

	if c.heuristic.IsProduct(lower) {
		return model.Product
	}
	return model.Other
}

// HasTable reports whether a pattern table is registered for siteKey.
func (c *Classifier) HasTable(siteKey string) bool {
	_, ok := c.tables[strings.ToLower(siteKey)]
	return ok
}

// Heuristic returns the fallback heuristic in use.
func (c *Classifier) Heuristic() Heuristic {
	return c.heuristic
}

// Tables returns a copy of the registered tables.
func (c *Classifier) Tables() map[string]Table {
	return maps.Clone(c.tables)
}
