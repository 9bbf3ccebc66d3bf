package crawler

import "errors"

var (
	// ErrNoSeeds is returned when a site has no seed inside its budget.
	ErrNoSeeds = errors.New("no seeds to crawl")

	// ErrAllSeedsFailed is returned when every seed failed to render after
	// all attempts.
	ErrAllSeedsFailed = errors.New("all seeds failed to render")
)
