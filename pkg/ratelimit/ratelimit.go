package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer enforces a minimum wall-clock interval between permitted calls,
// optionally stretched by random jitter. Unlike a ticker-based limiter it
// tracks the time of the last permitted call, so the wait before call N+1
// shrinks by however long the caller spent processing call N. The first
// call never waits. It is safe for concurrent use.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	next     time.Time
}

// NewPacer creates a pacer with the given minimum interval between calls.
// Jitter must be between 0.0 and 1.0; it extends the interval by up to
// jitter*interval. An interval <= 0 yields a pacer that never blocks.
func NewPacer(interval time.Duration, jitter float64) *Pacer {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Pacer{
		interval: interval,
		jitter:   jitter,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous permitted call, or until the context is canceled. On success the
// slot is consumed, so concurrent callers queue up one interval apart.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if !p.next.IsZero() && p.next.After(now) {
		wait = p.next.Sub(now)
	}
	step := p.interval
	if p.jitter > 0 {
		step += time.Duration(float64(p.interval) * p.jitter * rand.Float64())
	}
	p.next = now.Add(wait).Add(step)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		// The slot was never used; hand it back so later callers are not
		// delayed by an interval nobody spent.
		p.mu.Lock()
		p.next = p.next.Add(-step)
		p.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
