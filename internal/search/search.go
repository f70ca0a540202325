// Package search fuzzy-matches cached icon entries by URL.
package search

import (
	"github.com/nikbrunner/bmicon/internal/icon"
	"github.com/sahilm/fuzzy"
)

// Result is a fuzzy match against an entry key.
type Result struct {
	Entry          icon.Entry
	MatchedIndexes []int
	Score          int
}

// entryKeys implements fuzzy.Source over entry keys.
type entryKeys []icon.Entry

func (ek entryKeys) String(i int) string {
	return ek[i].Key
}

func (ek entryKeys) Len() int {
	return len(ek)
}

// FuzzySearchEntries matches query against entry keys, best match first.
// An empty query returns every entry in its original order.
func FuzzySearchEntries(entries []icon.Entry, query string) []Result {
	if query == "" {
		results := make([]Result, len(entries))
		for i, e := range entries {
			results[i] = Result{Entry: e}
		}
		return results
	}

	matches := fuzzy.FindFrom(query, entryKeys(entries))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Entry:          entries[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
