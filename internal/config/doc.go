// Package config provides configuration structures and utilities for wordscan.
// It defines the crawl limits, fetch policy, report and history settings, and
// the optional YAML file with per-site overrides.
package config
