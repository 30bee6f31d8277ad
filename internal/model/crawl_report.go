package model

import (
	"time"

	"github.com/google/uuid"
)

// Run status values stored with each report.
const (
	// StatusCompleted marks a crawl that ran until its frontier was empty.
	StatusCompleted = "completed"

	// StatusFailed marks a crawl aborted by a fetch error or cancellation.
	StatusFailed = "failed"
)

// CrawlReport is the outcome of one crawl run.
// It is printed by the report writers and stored by the history database.
//
// Design decision: The report keeps only the ranked words and counters,
// not the full frequency map. The map can hold the whole vocabulary of a
// site and nothing downstream needs it once the top words are selected.
type CrawlReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// Limit is the maximum number of HTML pages the run was allowed to crawl.
	Limit int `json:"limit"`

	// TopN is the number of words requested.
	TopN int `json:"top_n"`

	// MinWordLength is the shortest word that was counted.
	MinWordLength int `json:"min_word_length"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PagesCrawled is the number of HTML pages downloaded and scanned.
	PagesCrawled int `json:"pages_crawled"`

	// PagesSkipped is the number of URLs dropped because they were not HTML.
	PagesSkipped int `json:"pages_skipped"`

	// URLsVisited is the size of the visited set, seed included.
	URLsVisited int `json:"urls_visited"`

	// TopWords holds the most frequent words, highest rank first.
	TopWords []WordFrequency `json:"top_words"`

	// Status is StatusCompleted or StatusFailed.
	Status string `json:"status"`

	// Error is the message of the error that aborted the run, if any.
	Error string `json:"error,omitempty"`
}

// NewCrawlReport creates a report for a run starting now.
func NewCrawlReport(seed string, limit, topN, minWordLength int) *CrawlReport {
	return &CrawlReport{
		ID:            uuid.NewString(),
		Seed:          seed,
		Limit:         limit,
		TopN:          topN,
		MinWordLength: minWordLength,
		StartedAt:     time.Now(),
		TopWords:      make([]WordFrequency, 0),
	}
}

// Complete records a successful finish.
func (r *CrawlReport) Complete(words []WordFrequency) {
	r.FinishedAt = time.Now()
	r.Status = StatusCompleted
	r.Error = ""
	if words != nil {
		r.TopWords = words
	}
}

// Fail records an aborted run.
func (r *CrawlReport) Fail(err error) {
	r.FinishedAt = time.Now()
	r.Status = StatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// Failed reports whether the run was aborted.
func (r *CrawlReport) Failed() bool {
	return r.Status == StatusFailed
}

// Duration returns how long the run took.
// It returns zero for a run that has not finished.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// TotalOccurrences sums the frequencies of the reported words.
func (r *CrawlReport) TotalOccurrences() int {
	total := 0
	for _, w := range r.TopWords {
		total += w.Frequency
	}
	return total
}
