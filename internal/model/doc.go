// Package model defines the data structures shared by the crawler, the
// orchestrator, the run database and the report writers.
//
// This package contains the following main types:
//   - Classification: the outcome of classifying a discovered URL
//   - SiteResult: the product URLs and counters of one site crawl
//   - RunReport: the ordered results of every site in one run
//
// The models are serializable to JSON for report output and database storage.
package model
