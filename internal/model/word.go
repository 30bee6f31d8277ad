package model

// WordFrequency is a single entry of a crawl result.
type WordFrequency struct {
	// Word is the token exactly as it appeared in the page text (case preserved).
	Word string `json:"word"`

	// Frequency is the number of occurrences across all crawled pages.
	Frequency int `json:"frequency"`
}
