// Package pipeline runs the configured sites through a sequence of steps.
//
// Each site gets a fresh model.SiteResult that is passed through the steps
// of a Pipeline: the crawl itself, then post-processing such as saving the
// result to the history database. The Orchestrator feeds the sites to the
// pipeline one after another, isolates per-site failures and stops the run
// only when the render engine itself is gone or the context is cancelled.
package pipeline
