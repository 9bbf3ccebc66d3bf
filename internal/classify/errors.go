package classify

import "errors"

var (
	// ErrInvalidRuleKind is returned when a rule is not a product or
	// category rule.
	ErrInvalidRuleKind = errors.New("invalid rule kind: must be product or category")

	// ErrInvalidPattern is returned when a rule pattern does not compile.
	ErrInvalidPattern = errors.New("invalid rule pattern")

	// ErrInvalidThreshold is returned for a negative heuristic threshold.
	// Zero selects DefaultThreshold.
	ErrInvalidThreshold = errors.New("invalid heuristic threshold: must not be negative")
)
