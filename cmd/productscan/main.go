// Package main provides the entry point for the productscan CLI.
//
// productscan crawls e-commerce sites with a headless browser and collects
// the URLs of their product detail pages into a JSON file keyed by site.
//
// Usage:
//
//	productscan crawl
//	productscan crawl tatacliq westside
//	productscan history --list-sites
//
// See --help for all available options.
package main

// main is the entry point for productscan.
func main() {
	Execute()
}
