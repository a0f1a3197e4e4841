package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles reloads. A non-positive rate disables throttling.
type Limiter struct {
	inner *rate.Limiter
}

func NewLimiter(r float64, b int) *Limiter {
	if r <= 0 {
		return &Limiter{inner: rate.NewLimiter(rate.Inf, 0)}
	}
	if b < 1 {
		b = 1
	}
	return &Limiter{inner: rate.NewLimiter(rate.Limit(r), b)}
}

// Allow reports whether n events may happen now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n events are permitted or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}

// SetRate changes the limit and burst in place, e.g. after a config reload.
func (l *Limiter) SetRate(r float64, b int) {
	now := time.Now()
	if r <= 0 {
		l.inner.SetLimitAt(now, rate.Inf)
		return
	}
	if b < 1 {
		b = 1
	}
	l.inner.SetLimitAt(now, rate.Limit(r))
	l.inner.SetBurstAt(now, b)
}
