// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/pdiddy/unitrad/pkg/types"
)

// FilterBooks keeps the books whose title or author fuzzily contains term,
// ignoring case and diacritics. An empty term keeps everything.
func FilterBooks(books []types.Book, term string) []types.Book {
	if term == "" {
		return books
	}
	var out []types.Book
	for _, b := range books {
		if fuzzy.MatchNormalizedFold(term, Field(b, "title")) ||
			fuzzy.MatchNormalizedFold(term, Field(b, "author")) {
			out = append(out, b)
		}
	}
	return out
}
