// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unitrad

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/pdiddy/unitrad/pkg/types"
)

// Merge folds resp into cur and returns the next snapshot.
//
// Without books_diff the response replaces the snapshot. With it, inserts are
// appended, every top-level field present in resp overwrites cur, and each
// update patches books[_idx]: sequences are appended, mappings are merged
// key by key, and anything else is overwritten.
//
// cur is never modified. Books and containers touched by a patch are cloned,
// so snapshots handed out earlier stay valid.
func Merge(cur types.Snapshot, resp types.Response) (types.Snapshot, error) {
	if resp.BooksDiff == nil {
		return replace(resp), nil
	}
	diff := resp.BooksDiff

	next := cur
	next.Books = make([]types.Book, 0, len(cur.Books)+len(diff.Insert))
	next.Books = append(next.Books, cur.Books...)
	next.Books = append(next.Books, diff.Insert...)

	if resp.UUID != nil {
		next.UUID = *resp.UUID
	}
	if resp.Version != nil {
		next.Version = *resp.Version
	}
	if resp.Running != nil {
		next.Running = *resp.Running
	}
	if resp.Books != nil {
		next.Books = slices.Clone(*resp.Books)
	}
	if resp.Remains != nil {
		next.Remains = *resp.Remains
	}
	if resp.Errors != nil {
		next.Errors = *resp.Errors
	}

	cloned := make(map[int]bool)
	for i, patch := range diff.Update {
		idx, err := patchIndex(patch)
		if err != nil {
			return cur, &ProtocolError{Reason: fmt.Sprintf("update %d", i), Err: err}
		}
		if idx < 0 || idx >= len(next.Books) {
			return cur, &ProtocolError{
				Reason: fmt.Sprintf("update %d targets book %d of %d", i, idx, len(next.Books)),
				Err:    ErrIndexOutOfRange,
			}
		}
		if !cloned[idx] {
			next.Books[idx] = maps.Clone(next.Books[idx])
			if next.Books[idx] == nil {
				next.Books[idx] = types.Book{}
			}
			cloned[idx] = true
		}
		if err := applyPatch(next.Books[idx], patch); err != nil {
			return cur, &ProtocolError{Reason: fmt.Sprintf("update %d on book %d", i, idx), Err: err}
		}
	}
	return next, nil
}

func replace(resp types.Response) types.Snapshot {
	var s types.Snapshot
	if resp.UUID != nil {
		s.UUID = *resp.UUID
	}
	if resp.Version != nil {
		s.Version = *resp.Version
	}
	if resp.Running != nil {
		s.Running = *resp.Running
	}
	if resp.Books != nil {
		s.Books = *resp.Books
	}
	if resp.Remains != nil {
		s.Remains = *resp.Remains
	}
	if resp.Errors != nil {
		s.Errors = *resp.Errors
	}
	return s
}

// applyPatch writes every field of patch except _idx into book, which the
// caller has already cloned.
func applyPatch(book types.Book, patch types.BookPatch) error {
	for k, v := range patch {
		if k == types.PatchIndexKey {
			continue
		}
		switch v := v.(type) {
		case []any:
			existing, ok := book[k]
			if !ok || existing == nil {
				book[k] = slices.Clone(v)
				continue
			}
			seq, ok := existing.([]any)
			if !ok {
				return fmt.Errorf("field %q: %w", k, ErrKindMismatch)
			}
			out := make([]any, 0, len(seq)+len(v))
			book[k] = append(append(out, seq...), v...)
		case map[string]any:
			existing, ok := book[k]
			if !ok || existing == nil {
				book[k] = maps.Clone(v)
				continue
			}
			m, ok := existing.(map[string]any)
			if !ok {
				return fmt.Errorf("field %q: %w", k, ErrKindMismatch)
			}
			m = maps.Clone(m)
			maps.Copy(m, v)
			book[k] = m
		default:
			book[k] = v
		}
	}
	return nil
}

// patchIndex reads _idx. JSON numbers decode as float64; ints are accepted
// for patches built in code.
func patchIndex(p types.BookPatch) (int, error) {
	switch v := p[types.PatchIndexKey].(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, ErrBadIndex
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, ErrBadIndex
	}
}
