// Package model defines the data structures shared by the crawler, the
// report writers and the history database.
//
// This package contains the following main types:
//   - WordFrequency: A word and the number of times it was seen
//   - CrawlReport: The outcome of one crawl run, suitable for printing and storage
//
// Design decision: We keep these types in their own package so that the
// crawler, report and database packages can share them without import cycles.
package model
