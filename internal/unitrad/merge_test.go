// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unitrad

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/unitrad/pkg/types"
)

func decodeResponse(t *testing.T, body string) types.Response {
	t.Helper()
	var resp types.Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestMerge_ReplaceWithoutDiff(t *testing.T) {
	cur := types.Snapshot{UUID: "old", Version: 3, Books: []types.Book{{"id": "a"}}}
	resp := decodeResponse(t, `{
		"uuid": "u1", "version": 1, "running": true,
		"books": [{"id": "x"}], "remains": ["gifu-pref"], "errors": []
	}`)

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UUID)
	assert.Equal(t, 1, got.Version)
	assert.True(t, got.Running)
	assert.Equal(t, []types.Book{{"id": "x"}}, got.Books)
	assert.Equal(t, []string{"gifu-pref"}, got.Remains)
	assert.Empty(t, got.Errors)
}

func TestMerge_NullDiffReplaces(t *testing.T) {
	cur := types.Snapshot{UUID: "u1", Version: 1, Books: []types.Book{{"id": "a"}}}
	resp := decodeResponse(t, `{"uuid": "u1", "version": 2, "running": false, "books": [], "books_diff": null}`)

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Empty(t, got.Books)
	assert.Equal(t, 2, got.Version)
}

func TestMerge_EmptyDiffChangesOnlyTopLevel(t *testing.T) {
	cur := types.Snapshot{
		UUID: "u1", Version: 2, Running: true,
		Books:   []types.Book{{"id": "a", "holdings": []any{1.0}}},
		Remains: []string{"x", "y"},
	}
	resp := decodeResponse(t, `{
		"uuid": "u1", "version": 3, "running": true, "remains": ["y"], "errors": ["x: timeout"],
		"books_diff": {"insert": [], "update": []}
	}`)

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Equal(t, cur.Books, got.Books)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, []string{"y"}, got.Remains)
	assert.Equal(t, []string{"x: timeout"}, got.Errors)
}

func TestMerge_UpdateAppendsSequenceAndOverwritesScalar(t *testing.T) {
	cur := types.Snapshot{Books: []types.Book{{"a": 1, "list": []any{1}}}}
	resp := types.Response{BooksDiff: &types.BooksDiff{
		Update: []types.BookPatch{{"_idx": 0, "list": []any{2}, "a": 5}},
	}}

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Equal(t, types.Book{"a": 5, "list": []any{1, 2}}, got.Books[0])
}

func TestMerge_Insert(t *testing.T) {
	resp := types.Response{BooksDiff: &types.BooksDiff{Insert: []types.Book{{"id": "x"}}}}

	got, err := Merge(types.Snapshot{Books: []types.Book{}}, resp)
	require.NoError(t, err)
	assert.Equal(t, []types.Book{{"id": "x"}}, got.Books)
}

func TestMerge_InsertPreservesOrderAndAppends(t *testing.T) {
	cur := types.Snapshot{Books: []types.Book{{"id": "a"}}}
	resp := types.Response{BooksDiff: &types.BooksDiff{Insert: []types.Book{{"id": "b"}, {"id": "c"}}}}

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	require.Len(t, got.Books, 3)
	assert.Equal(t, "a", got.Books[0]["id"])
	assert.Equal(t, "b", got.Books[1]["id"])
	assert.Equal(t, "c", got.Books[2]["id"])
}

func TestMerge_UpdateCanTargetInsertedBook(t *testing.T) {
	resp := decodeResponse(t, `{"books_diff": {
		"insert": [{"id": "x", "holdings": []}],
		"update": [{"_idx": 0, "holdings": [100914]}]
	}}`)

	got, err := Merge(types.Snapshot{}, resp)
	require.NoError(t, err)
	assert.Equal(t, []any{100914.0}, got.Books[0]["holdings"])
}

func TestMerge_UpdateShallowMergesMapping(t *testing.T) {
	cur := types.Snapshot{Books: []types.Book{{
		"url": map[string]any{"100914": "https://a", "200": "https://b"},
	}}}
	resp := decodeResponse(t, `{"books_diff": {"insert": [], "update": [
		{"_idx": 0, "url": {"200": "https://c", "300": "https://d"}}
	]}}`)

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"100914": "https://a",
		"200":    "https://c",
		"300":    "https://d",
	}, got.Books[0]["url"])
}

func TestMerge_UpdateCreatesMissingContainers(t *testing.T) {
	cur := types.Snapshot{Books: []types.Book{{"id": "a"}}}
	resp := types.Response{BooksDiff: &types.BooksDiff{Update: []types.BookPatch{
		{"_idx": 0, "holdings": []any{1}, "url": map[string]any{"1": "u"}},
	}}}

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Equal(t, []any{1}, got.Books[0]["holdings"])
	assert.Equal(t, map[string]any{"1": "u"}, got.Books[0]["url"])
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	list := []any{1}
	urls := map[string]any{"1": "a"}
	cur := types.Snapshot{Version: 1, Books: []types.Book{{"a": 1, "list": list, "url": urls}}}
	resp := types.Response{BooksDiff: &types.BooksDiff{
		Insert: []types.Book{{"id": "new"}},
		Update: []types.BookPatch{{"_idx": 0, "a": 2, "list": []any{2}, "url": map[string]any{"1": "b"}}},
	}}

	_, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Len(t, cur.Books, 1)
	assert.Equal(t, 1, cur.Books[0]["a"])
	assert.Equal(t, []any{1}, cur.Books[0]["list"])
	assert.Equal(t, map[string]any{"1": "a"}, cur.Books[0]["url"])
}

func TestMerge_TopLevelFieldsKeptWhenAbsent(t *testing.T) {
	cur := types.Snapshot{UUID: "u1", Version: 4, Running: true, Remains: []string{"a"}}
	resp := types.Response{BooksDiff: &types.BooksDiff{}}

	got, err := Merge(cur, resp)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UUID)
	assert.Equal(t, 4, got.Version)
	assert.True(t, got.Running)
	assert.Equal(t, []string{"a"}, got.Remains)
}

func TestMerge_ProtocolErrors(t *testing.T) {
	base := types.Snapshot{Books: []types.Book{{"list": []any{1}, "url": map[string]any{}, "title": "t"}}}
	tests := []struct {
		name  string
		patch types.BookPatch
		want  error
	}{
		{"index past end", types.BookPatch{"_idx": 1, "a": 1}, ErrIndexOutOfRange},
		{"negative index", types.BookPatch{"_idx": -1, "a": 1}, ErrIndexOutOfRange},
		{"missing index", types.BookPatch{"a": 1}, ErrBadIndex},
		{"fractional index", types.BookPatch{"_idx": 0.5, "a": 1}, ErrBadIndex},
		{"string index", types.BookPatch{"_idx": "0", "a": 1}, ErrBadIndex},
		{"sequence onto scalar", types.BookPatch{"_idx": 0, "title": []any{"x"}}, ErrKindMismatch},
		{"mapping onto sequence", types.BookPatch{"_idx": 0, "list": map[string]any{"k": 1}}, ErrKindMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := types.Response{BooksDiff: &types.BooksDiff{Update: []types.BookPatch{tt.patch}}}
			got, err := Merge(base, resp)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var perr *ProtocolError
			assert.ErrorAs(t, err, &perr)
			assert.Equal(t, base, got, "failed merge returns the input snapshot")
		})
	}
}
