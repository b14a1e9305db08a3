// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs many search sessions at once on a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/pdiddy/unitrad/internal/query"
	"github.com/pdiddy/unitrad/internal/unitrad"
	"github.com/pdiddy/unitrad/pkg/types"
)

// ErrEmptyQuery marks a query with no search terms. It is never sent.
var ErrEmptyQuery = errors.New("empty query")

const defaultConcurrency = 4

// Result is the outcome of one query.
type Result struct {
	Query    types.Query
	Snapshot types.Snapshot
	Err      error
}

// Run searches every query, at most cfg.Concurrency at a time, and waits for
// all sessions to end. Results are in the order of queries. opts apply to
// every session. The returned error is only for failures to run the batch
// itself; per-query failures are in Result.Err.
func Run(ctx context.Context, r unitrad.Requester, queries []types.Query, cfg types.BatchConfig, opts ...unitrad.Option) ([]Result, error) {
	size := cfg.Concurrency
	if size <= 0 {
		size = defaultConcurrency
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]Result, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		results[i].Query = query.Strip(q)
		if query.IsEmpty(q) {
			results[i].Err = ErrEmptyQuery
			continue
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i].Snapshot, results[i].Err = runOne(ctx, r, q, opts)
		})
		if err != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("submitting query: %w", err)
		}
	}
	wg.Wait()
	return results, nil
}

func runOne(ctx context.Context, r unitrad.Requester, q types.Query, opts []unitrad.Option) (types.Snapshot, error) {
	s, err := unitrad.Search(ctx, r, q, func(types.Snapshot) {}, opts...)
	if err != nil {
		return types.Snapshot{}, err
	}
	<-s.Done()
	snap, _ := s.Snapshot()
	return snap, s.Err()
}
