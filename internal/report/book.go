// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"strconv"
	"strings"

	"github.com/pdiddy/unitrad/pkg/types"
)

// Field renders book[key] as text. Numbers lose their trailing ".0",
// sequences are joined with ", ", and missing or null values are "".
func Field(book types.Book, key string) string {
	return render(book[key])
}

func render(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			if s := render(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// HeldBy reports whether the book's holdings list contains library.
func HeldBy(book types.Book, library string) bool {
	holdings, ok := book["holdings"].([]any)
	if !ok {
		return false
	}
	for _, h := range holdings {
		if render(h) == library {
			return true
		}
	}
	return false
}

// Summarize flattens book. url is the entry for library in the book's
// per-library url mapping.
func Summarize(book types.Book, library string) types.BookSummary {
	s := types.BookSummary{
		ID:            Field(book, "id"),
		ISBN:          Field(book, "isbn"),
		Title:         Field(book, "title"),
		Author:        Field(book, "author"),
		Publisher:     Field(book, "publisher"),
		PublishedYear: Field(book, "pubdate"),
	}
	if urls, ok := book["url"].(map[string]any); ok && library != "" {
		s.URL = render(urls[library])
	}
	return s
}
