package classify

import (
	"fmt"
	"regexp"

	"github.com/nao1215/productscan/internal/model"
)

// Rule maps a URL shape to a classification.
// Pattern is case-insensitive and searched, not anchored, against the
// lowercased URL.
type Rule struct {
	Kind    model.Classification
	Pattern *regexp.Regexp
}

// NewRule compiles expr into a rule of the given kind.
// Only Product and Category rules are allowed.
func NewRule(kind model.Classification, expr string) (Rule, error) {
	if kind != model.Product && kind != model.Category {
		return Rule{}, fmt.Errorf("%w: %s", ErrInvalidRuleKind, kind)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Rule{}, fmt.Errorf("%w %q: %w", ErrInvalidPattern, expr, err)
	}
	return Rule{Kind: kind, Pattern: re}, nil
}

// Matches reports whether the lowercased URL matches the rule.
func (r Rule) Matches(lowerURL string) bool {
	return r.Pattern != nil && r.Pattern.MatchString(lowerURL)
}

// Table is an ordered rule list for one site.
type Table []Rule

// match returns the first rule of the given kind that matches lowerURL.
func (t Table) match(kind model.Classification, lowerURL string) bool {
	for _, r := range t {
		if r.Kind == kind && r.Matches(lowerURL) {
			return true
		}
	}
	return false
}
