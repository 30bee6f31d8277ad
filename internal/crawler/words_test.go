package crawler

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nao1215/wordscan/internal/model"
)

// TestAccumulate tests word counting.
func TestAccumulate(t *testing.T) {
	t.Parallel()

	t.Run("filters short and empty tokens", func(t *testing.T) {
		t.Parallel()

		freq := Accumulate(nil, "the quick brown foxes  jumped \tover\n lazy hounds", 5)
		for _, e := range freq.Entries() {
			if utf8.RuneCountInString(e.Word) < 5 {
				t.Errorf("word %q is shorter than the minimum", e.Word)
			}
			if strings.TrimSpace(e.Word) != e.Word {
				t.Errorf("word %q has surrounding whitespace", e.Word)
			}
		}
		if freq.Count("quick") != 1 || freq.Count("jumped") != 1 {
			t.Errorf("unexpected counts: %v", freq.Entries())
		}
		if freq.Count("over") != 0 {
			t.Error("short word must not be counted")
		}
	})

	t.Run("is case sensitive and mutates the given map", func(t *testing.T) {
		t.Parallel()

		freq := NewFrequencies()
		got := Accumulate(freq, "Hello hello hello", 5)
		if got != freq {
			t.Error("expected the same Frequencies to be returned")
		}
		if freq.Count("hello") != 2 || freq.Count("Hello") != 1 {
			t.Errorf("unexpected counts: %v", freq.Entries())
		}
	})

	t.Run("length is measured in runes", func(t *testing.T) {
		t.Parallel()

		freq := Accumulate(nil, "café naïve", 5)
		if freq.Count("naïve") != 1 {
			t.Error("expected five-rune word to be counted")
		}
		if freq.Count("café") != 0 {
			t.Error("expected four-rune word to be skipped")
		}
	})

	t.Run("keeps first-seen order", func(t *testing.T) {
		t.Parallel()

		freq := Accumulate(nil, "gamma alpha gamma beta1", 5)
		want := []model.WordFrequency{{Word: "gamma", Frequency: 2}, {Word: "alpha", Frequency: 1}, {Word: "beta1", Frequency: 1}}
		if !slices.Equal(freq.Entries(), want) {
			t.Errorf("entries = %v, expected %v", freq.Entries(), want)
		}
	})
}

// TestTopK tests selection and tie-breaking.
func TestTopK(t *testing.T) {
	t.Parallel()

	// first seen: apple, berry, cherry, dates, elder
	freq := Accumulate(nil, "apple berry cherry dates elder apple apple berry cherry cherry", 5)
	// apple=3 berry=2 cherry=3 dates=1 elder=1

	tests := []struct {
		name string
		k    int
		want []model.WordFrequency
	}{
		{
			name: "later first-seen wins ties",
			k:    1,
			want: []model.WordFrequency{{Word: "cherry", Frequency: 3}},
		},
		{
			name: "highest first",
			k:    3,
			want: []model.WordFrequency{
				{Word: "cherry", Frequency: 3},
				{Word: "apple", Frequency: 3},
				{Word: "berry", Frequency: 2},
			},
		},
		{
			name: "k larger than vocabulary",
			k:    10,
			want: []model.WordFrequency{
				{Word: "cherry", Frequency: 3},
				{Word: "apple", Frequency: 3},
				{Word: "berry", Frequency: 2},
				{Word: "elder", Frequency: 1},
				{Word: "dates", Frequency: 1},
			},
		},
		{
			name: "zero",
			k:    0,
			want: []model.WordFrequency{},
		},
		{
			name: "negative",
			k:    -1,
			want: []model.WordFrequency{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := TopK(freq, tt.k)
			if !slices.Equal(got, tt.want) {
				t.Errorf("TopK(%d) = %v, expected %v", tt.k, got, tt.want)
			}
		})
	}

	t.Run("rank order", func(t *testing.T) {
		t.Parallel()

		got := TopK(freq, freq.Len())
		for i := 1; i < len(got); i++ {
			if got[i].Frequency > got[i-1].Frequency {
				t.Fatalf("rank %d (%v) above rank %d (%v)", i+1, got[i], i, got[i-1])
			}
		}
	})

	t.Run("never excludes a more frequent word", func(t *testing.T) {
		t.Parallel()

		for k := 1; k <= freq.Len(); k++ {
			got := TopK(freq, k)
			if len(got) > k {
				t.Fatalf("TopK(%d) returned %d entries", k, len(got))
			}
			minIncluded := got[len(got)-1].Frequency
			for _, e := range freq.Entries() {
				if slices.Contains(got, e) {
					continue
				}
				if e.Frequency > minIncluded {
					t.Errorf("TopK(%d) excluded %v with higher frequency than %d", k, e, minIncluded)
				}
			}
		}
	})

	t.Run("does not modify the counts", func(t *testing.T) {
		t.Parallel()

		before := freq.Entries()
		_ = TopK(freq, 2)
		if !slices.Equal(before, freq.Entries()) {
			t.Error("TopK changed the insertion order")
		}
	})

	t.Run("nil frequencies", func(t *testing.T) {
		t.Parallel()

		if got := TopK(nil, 3); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
}
