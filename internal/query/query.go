// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query normalizes, compares, and strips search queries over the
// fixed Unitrad field set.
package query

import (
	"net/url"

	"github.com/pdiddy/unitrad/internal/httputil"
	"github.com/pdiddy/unitrad/pkg/types"
)

// Normalize returns a query holding every recognized field. Missing fields
// become "" and unknown keys are dropped.
func Normalize(q types.Query) types.Query {
	out := make(types.Query, len(types.QueryFields))
	for _, f := range types.QueryFields {
		out[f] = q[f]
	}
	return out
}

// IsEmpty reports whether every field except region is empty or absent.
// A query with only a region is empty.
func IsEmpty(q types.Query) bool {
	for _, f := range types.QueryFields {
		if f == types.RegionField {
			continue
		}
		if q[f] != "" {
			return false
		}
	}
	return true
}

// Equal compares a and b on every field except region.
func Equal(a, b types.Query) bool {
	for _, f := range types.QueryFields {
		if f == types.RegionField {
			continue
		}
		if a[f] != b[f] {
			return false
		}
	}
	return true
}

// Strip returns only the recognized fields that carry a value.
func Strip(q types.Query) types.Query {
	out := make(types.Query)
	for _, f := range types.QueryFields {
		if v := q[f]; v != "" {
			out[f] = v
		}
	}
	return out
}

// Params returns the stripped query as wire parameters in canonical order.
func Params(q types.Query) []httputil.Param {
	var params []httputil.Param
	for _, f := range types.QueryFields {
		if v := q[f]; v != "" {
			params = append(params, httputil.Param{Key: f, Value: v})
		}
	}
	return params
}

// FromValues builds a query from URL values, taking the first value of each
// recognized key.
func FromValues(v url.Values) types.Query {
	q := make(types.Query)
	for _, f := range types.QueryFields {
		if s := v.Get(f); s != "" {
			q[f] = s
		}
	}
	return q
}
