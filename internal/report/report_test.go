// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/unitrad/pkg/types"
)

func sampleBooks() []types.Book {
	return []types.Book{
		{
			"id":        "b1",
			"title":     "吾輩は猫である",
			"author":    "夏目漱石",
			"publisher": "岩波書店",
			"pubdate":   "1990",
			"isbn":      "9784003101018",
			"holdings":  []any{float64(100622), float64(100623)},
			"url":       map[string]any{"100622": "https://lib.example/b1"},
		},
		{
			"id":       "b2",
			"title":    "Norwegian Wood",
			"author":   "Haruki Murakami",
			"pubdate":  float64(2000),
			"holdings": []any{"200100"},
		},
		{
			"id":    "b3",
			"title": "Café Society",
		},
	}
}

func TestField(t *testing.T) {
	b := types.Book{
		"s":    "text",
		"f":    float64(2024),
		"frac": 1.5,
		"i":    7,
		"t":    true,
		"list": []any{"a", nil, float64(2)},
		"null": nil,
		"obj":  map[string]any{"k": "v"},
	}
	assert.Equal(t, "text", Field(b, "s"))
	assert.Equal(t, "2024", Field(b, "f"))
	assert.Equal(t, "1.5", Field(b, "frac"))
	assert.Equal(t, "7", Field(b, "i"))
	assert.Equal(t, "true", Field(b, "t"))
	assert.Equal(t, "a, 2", Field(b, "list"))
	assert.Empty(t, Field(b, "null"))
	assert.Empty(t, Field(b, "obj"))
	assert.Empty(t, Field(b, "missing"))
}

func TestHeldBy(t *testing.T) {
	books := sampleBooks()
	assert.True(t, HeldBy(books[0], "100622"))
	assert.False(t, HeldBy(books[0], "999"))
	assert.True(t, HeldBy(books[1], "200100"))
	assert.False(t, HeldBy(books[2], "100622"))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleBooks()[0], "100622")
	assert.Equal(t, types.BookSummary{
		ID:            "b1",
		ISBN:          "9784003101018",
		Title:         "吾輩は猫である",
		Author:        "夏目漱石",
		Publisher:     "岩波書店",
		PublishedYear: "1990",
		URL:           "https://lib.example/b1",
	}, s)

	assert.Empty(t, Summarize(sampleBooks()[0], "100623").URL)
	assert.Equal(t, "2000", Summarize(sampleBooks()[1], "").PublishedYear)
}

func TestFilterBooks(t *testing.T) {
	books := sampleBooks()

	tests := []struct {
		name string
		term string
		want []string
	}{
		{"empty keeps all", "", []string{"b1", "b2", "b3"}},
		{"title", "猫", []string{"b1"}},
		{"author case-insensitive", "murakami", []string{"b2"}},
		{"fuzzy subsequence", "nwood", []string{"b2"}},
		{"diacritics folded", "cafe", []string{"b3"}},
		{"no match", "zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, b := range FilterBooks(books, tt.term) {
				got = append(got, Field(b, "id"))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	Progress(&buf, types.Snapshot{Version: 3, Running: true, Books: sampleBooks(), Remains: []string{"a", "b"}})
	assert.Equal(t, "v3 running: 3 books, 2 sources pending", buf.String())

	buf.Reset()
	Progress(&buf, types.Snapshot{Version: 5, Errors: []string{"x"}})
	assert.Equal(t, "v5 done: 0 books, 0 sources pending, 1 errors", buf.String())
}

func TestFormatTable(t *testing.T) {
	snap := types.Snapshot{
		Version: 2,
		Running: true,
		Books:   sampleBooks(),
		Remains: []string{"Gifu_Pref"},
		Errors:  []string{"Tokyo timed out"},
	}

	var buf bytes.Buffer
	FormatTable(snap, snap.Books[:2], &buf)
	out := buf.String()

	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "吾輩は猫である")
	assert.Contains(t, out, "Haruki Murakami")
	assert.Contains(t, out, "2 books (of 3)")
	assert.Contains(t, out, "still waiting on Gifu_Pref")
	assert.Contains(t, out, "warning: Tokyo timed out")
	assert.NotContains(t, out, "Café Society")
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(types.Snapshot{}, nil, &buf)
	assert.Contains(t, buf.String(), "No books found.")
	assert.Contains(t, buf.String(), "0 books")
}

func TestFormatJSON(t *testing.T) {
	snap := types.Snapshot{UUID: "u", Version: 4, Books: sampleBooks()[:1]}
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(snap, &buf))

	var got types.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "u", got.UUID)
	assert.Equal(t, 4, got.Version)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "吾輩は猫である", got.Books[0]["title"])
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "吾輩は...", truncate("吾輩は猫である名前", 6))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	q := types.Query{"title": "猫", "region": "gifu", "author": ""}
	snap := types.Snapshot{
		UUID:    "u-1",
		Version: 6,
		Books:   sampleBooks()[:2],
		Errors:  []string{"one source failed"},
	}

	require.NoError(t, WriteQueryFile(path, q, snap))

	qf, err := ReadQueryFile(path)
	require.NoError(t, err)
	assert.Equal(t, types.Query{"title": "猫", "region": "gifu"}, qf.Query)
	assert.Equal(t, 2, qf.Result.Total)
	assert.False(t, qf.Result.Timestamp.IsZero())

	got := qf.Snapshot()
	assert.Equal(t, "u-1", got.UUID)
	assert.Equal(t, 6, got.Version)
	assert.False(t, got.Running)
	assert.Equal(t, []string{"one source failed"}, got.Errors)
	require.Len(t, got.Books, 2)
	assert.Equal(t, "吾輩は猫である", Field(got.Books[0], "title"))
	assert.Equal(t, "2000", Field(got.Books[1], "pubdate"))
	assert.True(t, HeldBy(got.Books[0], "100622"))
}

func TestReadQueryFile_Errors(t *testing.T) {
	_, err := ReadQueryFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading query file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("query: [unterminated"), 0o644))
	_, err = ReadQueryFile(bad)
	assert.ErrorContains(t, err, "parsing query file")
}

func TestReadQueryList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	content := `- title: 猫
  region: gifu
- author: 村上春樹
  isbn: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	queries, err := ReadQueryList(path)
	require.NoError(t, err)
	assert.Equal(t, []types.Query{
		{"title": "猫", "region": "gifu"},
		{"author": "村上春樹"},
	}, queries)
}
