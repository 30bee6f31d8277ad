// Package database provides SQLite-based storage of crawl history.
//
// CrawlDB stores one row per finished (or failed) crawl in crawl_runs, with
// the full report as JSON, and the ranked words in top_words so that the rank
// of a word can be followed across runs of the same seed.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the
// database is a single file and the driver needs no CGO.
package database
