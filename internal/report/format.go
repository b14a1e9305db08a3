// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders search snapshots for people and files: tables,
// JSON, progress lines, and YAML query files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/unitrad/pkg/types"
)

// Progress writes a one-line status of snap without a trailing newline.
func Progress(w io.Writer, snap types.Snapshot) {
	state := "running"
	if !snap.Running {
		state = "done"
	}
	fmt.Fprintf(w, "v%d %s: %d books, %d sources pending", snap.Version, state, len(snap.Books), len(snap.Remains))
	if n := len(snap.Errors); n > 0 {
		fmt.Fprintf(w, ", %d errors", n)
	}
}

// FormatTable writes books as a human-readable table followed by the
// session status.
func FormatTable(snap types.Snapshot, books []types.Book, w io.Writer) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-40s  %-20s  %-16s  %-4s  %s\n",
			"#", "Title", "Author", "Publisher", "Year", "ISBN")
		fmt.Fprintln(w, strings.Repeat("-", 104))

		for i, b := range books {
			fmt.Fprintf(w, "%-4d  %-40s  %-20s  %-16s  %-4s  %s\n",
				i+1,
				truncate(Field(b, "title"), 40),
				truncate(Field(b, "author"), 20),
				truncate(Field(b, "publisher"), 16),
				truncate(Field(b, "pubdate"), 4),
				Field(b, "isbn"))
		}
	}

	fmt.Fprintf(w, "\n%d books", len(books))
	if len(books) != len(snap.Books) {
		fmt.Fprintf(w, " (of %d)", len(snap.Books))
	}
	if snap.Running {
		fmt.Fprintf(w, ", still waiting on %s", strings.Join(snap.Remains, ", "))
	}
	fmt.Fprintln(w)
	for _, e := range snap.Errors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

// FormatJSON writes snap as indented JSON.
func FormatJSON(snap types.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(snap)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
