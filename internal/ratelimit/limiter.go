// Package ratelimit paces outbound completion calls. A single Limiter is
// shared by every call path, including retries and fallbacks, so the
// third-party API's rate contract is honored globally.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum inter-call spacing and a maximum number of
// calls per rolling 60 seconds. Waiters queue; they are never rejected.
type Limiter struct {
	mu           sync.Mutex
	spacing      *rate.Limiter
	window       []time.Time
	maxPerMinute int

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a limiter. minInterval <= 0 disables spacing; maxPerMinute
// <= 0 disables the window cap.
func New(minInterval time.Duration, maxPerMinute int) *Limiter {
	var spacing *rate.Limiter
	if minInterval > 0 {
		spacing = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return &Limiter{
		spacing:      spacing,
		maxPerMinute: maxPerMinute,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// NewWithClock creates a limiter with an injected clock and sleep so the
// window logic is deterministic under test.
func NewWithClock(
	minInterval time.Duration,
	maxPerMinute int,
	now func() time.Time,
	sleep func(context.Context, time.Duration) error,
) *Limiter {
	l := New(minInterval, maxPerMinute)
	l.now = now
	l.sleep = sleep
	return l
}

// Wait blocks until the caller may issue a call or ctx is done. The mutex
// is held across the wait, which serializes callers into a queue and
// keeps the window state owned by exactly one waiter at a time.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.maxPerMinute > 0 {
		now := l.now()
		l.prune(now)
		if len(l.window) < l.maxPerMinute {
			break
		}
		wait := l.window[0].Add(time.Minute).Sub(now)
		if wait <= 0 {
			continue
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}

	if l.spacing != nil {
		if err := l.spacing.Wait(ctx); err != nil {
			return err
		}
	}

	l.window = append(l.window, l.now())
	return nil
}

// prune drops window entries older than one minute.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
