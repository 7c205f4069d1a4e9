package util

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter and remembers how many events it turned away,
// so throttled log lines can report what they skipped.
type Limiter struct {
	inner      *rate.Limiter
	suppressed atomic.Uint64
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second.
// b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether an event with weight n may happen now.
func (l *Limiter) Allow(n int) bool {
	if l.inner.AllowN(time.Now(), n) {
		return true
	}
	l.suppressed.Add(1)
	return false
}

// Suppressed returns the number of rejected events since the previous call.
func (l *Limiter) Suppressed() uint64 {
	return l.suppressed.Swap(0)
}
