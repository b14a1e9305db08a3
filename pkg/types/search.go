// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the unitrad client.
//
// Query describes what the caller is looking for; Snapshot is the cumulative
// search state the client hands back; Response and BooksDiff mirror the wire
// bodies of the search and polling endpoints.
package types

// QueryFields lists the recognized query keys in canonical wire order.
var QueryFields = []string{
	"free", "title", "author", "publisher", "isbn", "ndc",
	"year_start", "year_end", "region",
}

// RegionField is the scope key. It is ignored by query equality and emptiness.
const RegionField = "region"

// Query maps a field name from QueryFields to its value. A missing key and an
// empty value are equivalent.
type Query map[string]string

// Book is one bibliographic record. Values are whatever the JSON decoder
// produced: scalars, []any, or map[string]any.
type Book map[string]any

// Snapshot is the cumulative, consumer-visible state of one search session.
type Snapshot struct {
	// UUID identifies the session; assigned by the server on the first response.
	UUID string `json:"uuid" yaml:"uuid"`

	// Version never decreases across snapshots delivered for one session.
	Version int `json:"version" yaml:"version"`

	// Running reports that more increments are still pending on the server.
	Running bool `json:"running" yaml:"running"`

	// Books grows by append and is patched in place by diffs.
	Books []Book `json:"books" yaml:"books"`

	// Remains lists the sources that have not answered yet.
	Remains []string `json:"remains" yaml:"remains"`

	// Errors holds one message per failing source.
	Errors []string `json:"errors" yaml:"errors"`
}

// Response is the body of a search or polling reply. Pointer fields are nil
// when the key is absent from the body.
type Response struct {
	UUID      *string    `json:"uuid"`
	Version   *int       `json:"version"`
	Running   *bool      `json:"running"`
	Books     *[]Book    `json:"books"`
	Remains   *[]string  `json:"remains"`
	Errors    *[]string  `json:"errors"`
	BooksDiff *BooksDiff `json:"books_diff"`
}

// BooksDiff is the incremental part of a polling reply.
type BooksDiff struct {
	// Insert holds new records to append to Snapshot.Books.
	Insert []Book `json:"insert"`

	// Update holds per-record patches addressed by their "_idx" key.
	Update []BookPatch `json:"update"`
}

// BookPatch is a set of changed fields for the book at position "_idx".
type BookPatch map[string]any

// PatchIndexKey is the key of a BookPatch that holds the target index.
const PatchIndexKey = "_idx"

// BookSummary is the flattened view of a Book served by the local HTTP API.
type BookSummary struct {
	ID            string `json:"id"`
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Publisher     string `json:"publisher"`
	PublishedYear string `json:"published_year"`
	URL           string `json:"url"`
}
