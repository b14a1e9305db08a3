// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the API client and the
// search session: query string encoding and the retry policy.
package httputil

import (
	"net/url"
	"strings"
)

// Param is one query string pair. A slice of Params keeps insertion order,
// which url.Values does not.
type Param struct {
	Key   string
	Value string
}

// EncodeQuery builds "?k=v&k=v" from params. Pairs with an empty value are
// skipped, keys and values are percent-encoded independently with spaces as
// %20, and the result is "" when nothing remains.
func EncodeQuery(params []Param) string {
	var pairs []string
	for _, p := range params {
		if p.Value == "" {
			continue
		}
		pairs = append(pairs, escape(p.Key)+"="+escape(p.Value))
	}
	if len(pairs) == 0 {
		return ""
	}
	return "?" + strings.Join(pairs, "&")
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
