// Package database keeps the crawl history of productscan in SQLite.
//
// Every site crawl is stored as a row in crawls together with the product
// URLs it found. The history lets the history command list past crawls and
// show which product URLs appeared or disappeared between two runs.
//
// The database lives in a single file (productscan.db) under the XDG data
// directory and is opened with modernc.org/sqlite, which needs no cgo.
package database
