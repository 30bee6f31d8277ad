// Package crawler walks a single site and counts the words it finds.
//
// # Components
//
//   - Scanner: one tokenizer pass over a page that yields same-domain links and text
//   - Frequencies, Accumulate: insertion-ordered word counts
//   - TopK: the most frequent words
//   - Controller: the crawl loop that owns the frontier and the visited set
//
// # Crawl loop
//
// The Controller is a state machine with three states. While RUNNING it pops
// the oldest URL from the frontier, asks for its headers with HEAD and, if the
// Content-Type starts with "text/html", downloads, scans and counts the page.
// Once the page limit is reached the frontier is dropped (DRAINING) and the
// crawl ends (DONE). An empty frontier also ends the crawl.
//
// Exactly one request is in flight at any time. Any fetch error ends the
// whole crawl.
//
// # Usage
//
//	f := fetch.NewRetryingFetcher(fetch.NewHTTPFetcher())
//	c := crawler.NewController(f, crawler.WithLimit(30), crawler.WithTopN(5))
//	result, err := c.Crawl(ctx, "https://example.com")
package crawler
