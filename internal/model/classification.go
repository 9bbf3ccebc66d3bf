package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Classification is the outcome of classifying a discovered URL.
type Classification int

const (
	// Other is a URL that is neither a product nor a known listing page.
	// It may still be followed to discover more products.
	Other Classification = iota

	// Category is a listing or navigation page. It is followed but never
	// collected as a product.
	Category

	// Product is a product detail page. It is collected into the result set.
	Product
)

// String returns the lowercase name of the classification.
func (c Classification) String() string {
	switch c {
	case Other:
		return "other"
	case Category:
		return "category"
	case Product:
		return "product"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the classification as its name.
func (c Classification) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a classification from its name.
func (c *Classification) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClassification(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClassification parses a classification name case-insensitively.
func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "other":
		return Other, nil
	case "category":
		return Category, nil
	case "product":
		return Product, nil
	default:
		return Other, fmt.Errorf("unknown classification %q", s)
	}
}
