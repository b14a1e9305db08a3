// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"math/rand/v2"
	"time"

	"github.com/pdiddy/unitrad/pkg/types"
)

// DefaultRetryDelay is the wait before resending a failed request when the
// policy does not set one.
const DefaultRetryDelay = 1 * time.Second

const defaultStallAfter = 3

// RetryPolicy decides whether and when a failed request is sent again.
//
// The zero value retries forever with DefaultRetryDelay between attempts,
// which is the behavior search sessions have always had. MaxAttempts and
// MaxElapsed are opt-in caps.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
	MaxElapsed  time.Duration
	Jitter      float64
	StallAfter  int

	// rand returns a value in [0, 1). Tests replace it.
	rand func() float64
}

// NewRetryPolicy builds a policy from configuration.
func NewRetryPolicy(cfg types.RetryConfig) RetryPolicy {
	return RetryPolicy{
		Delay:       cfg.Delay,
		MaxAttempts: cfg.MaxAttempts,
		MaxElapsed:  cfg.MaxElapsed,
		Jitter:      cfg.Jitter,
		StallAfter:  cfg.StallAfter,
	}
}

// Next returns the delay before retry number attempt (1-based, counting
// failures so far) and whether a retry is allowed at all. elapsed is the
// time since the first failure of the current request.
func (p RetryPolicy) Next(attempt int, elapsed time.Duration) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return 0, false
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return 0, false
	}

	delay := p.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if p.Jitter > 0 {
		r := rand.Float64
		if p.rand != nil {
			r = p.rand
		}
		j := min(p.Jitter, 1)
		// Spread uniformly over [delay*(1-j), delay*(1+j)).
		delay = time.Duration(float64(delay) * (1 - j + 2*j*r()))
	}
	return delay, true
}

// Stalled reports whether failures consecutive failed attempts should be
// surfaced as a stalled session.
func (p RetryPolicy) Stalled(failures int) bool {
	n := p.StallAfter
	if n <= 0 {
		n = defaultStallAfter
	}
	return failures >= n
}
