package classify

import "strings"

// DefaultThreshold is the minimum hint score for a URL to count as a product.
const DefaultThreshold = 2

// DefaultHints returns the keyword set used by the generic heuristic.
// "/mp000000" is the numeric product-id prefix used by tatacliq.
func DefaultHints() []string {
	return []string{
		"product",
		"/p/",
		"item",
		"prod",
		"/mp000000",
		"/p-",
		"products",
		"catalog",
	}
}

// Heuristic scores URLs by counting product-like substrings.
type Heuristic struct {
	// Hints are substrings that suggest a product page. Each hint present
	// in the URL adds one point.
	Hints []string

	// Threshold is the minimum score for a URL to be a product.
	Threshold int
}

// DefaultHeuristic returns the heuristic with DefaultHints and DefaultThreshold.
func DefaultHeuristic() Heuristic {
	return Heuristic{Hints: DefaultHints(), Threshold: DefaultThreshold}
}

// Score returns the hint score of an already lowercased URL.
// A URL containing "/p-" or "/p/" earns one extra point on top of the
// hint itself.
func (h Heuristic) Score(lowerURL string) int {
	score := 0
	for _, hint := range h.Hints {
		if hint != "" && strings.Contains(lowerURL, hint) {
			score++
		}
	}
	if strings.Contains(lowerURL, "/p-") || strings.Contains(lowerURL, "/p/") {
		score++
	}
	return score
}

// IsProduct reports whether the lowercased URL reaches the threshold.
func (h Heuristic) IsProduct(lowerURL string) bool {
	return h.Score(lowerURL) >= h.Threshold
}

// normalize lowercases the hints and fills in the default threshold.
func (h Heuristic) normalize() Heuristic {
	hints := make([]string, 0, len(h.Hints))
	for _, hint := range h.Hints {
		if hint = strings.ToLower(strings.TrimSpace(hint)); hint != "" {
			hints = append(hints, hint)
		}
	}
	threshold := h.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Heuristic{Hints: hints, Threshold: threshold}
}
