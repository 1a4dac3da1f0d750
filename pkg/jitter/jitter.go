// Package jitter добавляет случайность в интервалы повторов (backoff),
// чтобы клиенты не повторяли запросы синхронно.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Duration возвращает d с джиттером в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	return DurationWithRand(d, jitterFactor, rand.Float64)
}

// DurationWithRand использует переданный источник случайных чисел в [0, 1).
func DurationWithRand(d time.Duration, jitterFactor float64, rnd func() float64) time.Duration {
	if jitterFactor <= 0 || d <= 0 {
		return d
	}
	return d + time.Duration(rnd()*jitterFactor*float64(d))
}

// ExponentialBackoff вычисляет base*2^attempt, ограниченное max, и добавляет джиттер.
// attempt нумеруется с нуля.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	return Duration(Backoff(base, max, attempt), jitterFactor)
}

// Backoff — экспоненциальная задержка без джиттера.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= max {
			return max
		}
	}
	return backoff
}
