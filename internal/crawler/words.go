package crawler

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/wordscan/internal/model"
)

// DefaultMinWordLength is the shortest word that is counted.
const DefaultMinWordLength = 5

// Frequencies counts words and remembers the order in which each word was
// first seen. Counts only grow.
type Frequencies struct {
	index   map[string]int
	entries []model.WordFrequency
}

// NewFrequencies returns an empty Frequencies.
func NewFrequencies() *Frequencies {
	return &Frequencies{index: make(map[string]int)}
}

// Add increments the count of word, inserting it with count 1 if absent.
func (f *Frequencies) Add(word string) {
	if i, ok := f.index[word]; ok {
		f.entries[i].Frequency++
		return
	}
	f.index[word] = len(f.entries)
	f.entries = append(f.entries, model.WordFrequency{Word: word, Frequency: 1})
}

// Count returns the count of word, or 0.
func (f *Frequencies) Count(word string) int {
	if i, ok := f.index[word]; ok {
		return f.entries[i].Frequency
	}
	return 0
}

// Len returns the number of distinct words.
func (f *Frequencies) Len() int {
	return len(f.entries)
}

// Entries returns a copy of the counts in first-seen order.
func (f *Frequencies) Entries() []model.WordFrequency {
	return slices.Clone(f.entries)
}

// Accumulate splits text on single spaces and adds every token that is at
// least minLen runes long after trimming. It returns freq, creating it if nil.
func Accumulate(freq *Frequencies, text string, minLen int) *Frequencies {
	if freq == nil {
		freq = NewFrequencies()
	}
	for _, token := range strings.Split(text, " ") {
		word := strings.TrimSpace(token)
		if word == "" || utf8.RuneCountInString(word) < minLen {
			continue
		}
		freq.Add(word)
	}
	return freq
}

// TopK returns at most k words, most frequent first.
//
// Words are stable-sorted by ascending count and the last k are taken, so
// among equal counts the word first seen later ranks higher. That selection
// is ascending; the returned slice is its reverse, so index 0 is rank 1.
//
// Design decision: Reports, the history database and the HTTP API all
// number words by rank, so the slice is handed out in rank order instead of
// the ascending order of the selection.
func TopK(freq *Frequencies, k int) []model.WordFrequency {
	if freq == nil || k <= 0 {
		return []model.WordFrequency{}
	}

	sorted := freq.Entries()
	slices.SortStableFunc(sorted, func(a, b model.WordFrequency) int {
		return cmp.Compare(a.Frequency, b.Frequency)
	})

	if k < len(sorted) {
		sorted = sorted[len(sorted)-k:]
	}
	slices.Reverse(sorted)
	return sorted
}
