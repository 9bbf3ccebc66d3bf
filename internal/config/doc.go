// Package config provides configuration structures and utilities for
// productscan.
//
// Config holds the run options that come from CLI flags. File is the
// .productscan YAML file holding site definitions, pattern tables and
// heuristic settings. File.Resolve turns a File into the validated Site
// records the orchestrator crawls.
package config
