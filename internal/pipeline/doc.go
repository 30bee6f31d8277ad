// Package pipeline runs the stages of one crawl run in sequence and batches
// of runs concurrently.
//
// A run is processed through Steps that share a model.CrawlReport: the crawl
// itself, writing the report and saving it to the history database. The
// BatchProcessor runs one pipeline per seed with a concurrency limit.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because the CLI needs the same stages with different outputs, and the
// pipeline gives each stage the same logging and cancellation handling.
package pipeline
