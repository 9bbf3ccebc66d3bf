// Package classify decides whether a URL is a product page, a category page
// or something else.
//
// Classification is two-tier. Sites with a registered pattern table are
// matched against their product rules first and then their category rules.
// Anything left over, and every URL of a site without a table, is scored by
// a generic keyword heuristic. Matching is case-insensitive.
//
// A Classifier is immutable after construction and safe for concurrent use.
package classify
