// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/unitrad/pkg/types"
)

func TestRetryPolicy_ZeroValueIsUnbounded(t *testing.T) {
	var p RetryPolicy
	for _, attempt := range []int{1, 2, 3, 100, 10000} {
		delay, ok := p.Next(attempt, 24*time.Hour)
		assert.True(t, ok, "attempt %d", attempt)
		assert.Equal(t, DefaultRetryDelay, delay)
	}
}

func TestRetryPolicy_FixedDelay(t *testing.T) {
	p := RetryPolicy{Delay: 250 * time.Millisecond}
	delay, ok := p.Next(1, 0)
	assert.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, delay)
}

func TestRetryPolicy_MaxAttempts(t *testing.T) {
	p := RetryPolicy{Delay: time.Millisecond, MaxAttempts: 3}

	_, ok := p.Next(1, 0)
	assert.True(t, ok)
	_, ok = p.Next(2, 0)
	assert.True(t, ok)
	_, ok = p.Next(3, 0)
	assert.False(t, ok, "third failure exhausts a cap of 3 attempts")
}

func TestRetryPolicy_MaxElapsed(t *testing.T) {
	p := RetryPolicy{Delay: time.Second, MaxElapsed: 5 * time.Second}

	_, ok := p.Next(1, 4*time.Second)
	assert.True(t, ok)
	_, ok = p.Next(2, 5*time.Second)
	assert.False(t, ok)
}

func TestRetryPolicy_Jitter(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		want time.Duration
	}{
		{"low end", 0, 500 * time.Millisecond},
		{"middle", 0.5, time.Second},
		{"high end", 0.75, 1250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RetryPolicy{Delay: time.Second, Jitter: 0.5, rand: func() float64 { return tt.r }}
			delay, ok := p.Next(1, 0)
			assert.True(t, ok)
			assert.Equal(t, tt.want, delay)
		})
	}
}

func TestRetryPolicy_Stalled(t *testing.T) {
	var p RetryPolicy
	assert.False(t, p.Stalled(2))
	assert.True(t, p.Stalled(3))

	p.StallAfter = 1
	assert.True(t, p.Stalled(1))
}

func TestNewRetryPolicy(t *testing.T) {
	p := NewRetryPolicy(types.RetryConfig{
		Delay:       2 * time.Second,
		MaxAttempts: 4,
		MaxElapsed:  time.Minute,
		Jitter:      0.1,
		StallAfter:  5,
	})
	assert.Equal(t, 2*time.Second, p.Delay)
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, time.Minute, p.MaxElapsed)
	assert.Equal(t, 0.1, p.Jitter)
	assert.Equal(t, 5, p.StallAfter)
}
