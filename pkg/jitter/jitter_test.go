package jitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 30 * time.Second},
		{50, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(time.Second, 30*time.Second, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDurationWithRand(t *testing.T) {
	t.Run("upper bound", func(t *testing.T) {
		got := DurationWithRand(time.Second, 0.5, func() float64 { return 1 })
		assert.Equal(t, 1500*time.Millisecond, got)
	})

	t.Run("no jitter", func(t *testing.T) {
		got := DurationWithRand(time.Second, 0, func() float64 { return 1 })
		assert.Equal(t, time.Second, got)
	})
}

func TestExponentialBackoff_Range(t *testing.T) {
	for attempt := 0; attempt < 4; attempt++ {
		base := Backoff(100*time.Millisecond, time.Second, attempt)
		got := ExponentialBackoff(100*time.Millisecond, time.Second, attempt, DefaultJitter)

		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/2)
	}
}
