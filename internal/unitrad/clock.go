// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unitrad

import "time"

// Clock schedules session delays. Tests substitute a fake to observe the
// requested delays without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
