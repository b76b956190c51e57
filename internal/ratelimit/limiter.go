// Package ratelimit guards the scarce external generation endpoint. A Limiter
// owns admission (concurrency cap, minimum call spacing, a per-window
// reservoir) and Retry owns per-attempt backoff; workers compose the two so
// every retry attempt still passes admission.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config tunes a Limiter. Zero values fall back to the defaults noted.
type Config struct {
	// MaxConcurrency caps simultaneous in-flight calls. Default 1.
	MaxConcurrency int
	// MinSpacing is the minimum delay between the start of consecutive
	// calls. Default 0 (disabled).
	MinSpacing time.Duration
	// ReservoirSize is the number of calls permitted per refill window.
	// Default 0 (disabled).
	ReservoirSize int
	// RefillInterval is the fixed reservoir refill period. Required when
	// ReservoirSize > 0.
	RefillInterval time.Duration
}

// Limiter serializes and throttles calls to one external endpoint. All
// workers of a kind must share a single instance.
type Limiter struct {
	sem chan struct{}

	mu          sync.Mutex
	nextStart   time.Time
	spacing     time.Duration
	tokens      int
	size        int
	interval    time.Duration
	windowStart time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New builds a Limiter from cfg.
func New(cfg Config) *Limiter {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	l := &Limiter{
		sem:      make(chan struct{}, cfg.MaxConcurrency),
		spacing:  cfg.MinSpacing,
		size:     cfg.ReservoirSize,
		interval: cfg.RefillInterval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	l.tokens = l.size
	l.windowStart = l.now()
	return l
}

// Do admits one call and runs fn while holding the in-flight slot. It blocks
// (not spins) until a slot, the spacing gate, and a reservoir token are all
// available, or until ctx is done.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.sem }()

	if err := l.admit(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

// admit waits out the spacing gate and takes a reservoir token.
func (l *Limiter) admit(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.refillLocked(now)

		var wait time.Duration
		if l.spacing > 0 && now.Before(l.nextStart) {
			wait = l.nextStart.Sub(now)
		}
		if wait == 0 && l.size > 0 && l.tokens == 0 {
			// Reservoir drained; wait for the next window boundary.
			wait = l.windowStart.Add(l.interval).Sub(now)
			if wait <= 0 {
				wait = time.Millisecond
			}
		}

		if wait == 0 {
			if l.size > 0 {
				l.tokens--
			}
			if l.spacing > 0 {
				l.nextStart = now.Add(l.spacing)
			}
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// refillLocked resets the reservoir for every elapsed window. Refill happens
// on the fixed schedule regardless of consumption history.
func (l *Limiter) refillLocked(now time.Time) {
	if l.size <= 0 || l.interval <= 0 {
		return
	}
	for !now.Before(l.windowStart.Add(l.interval)) {
		l.windowStart = l.windowStart.Add(l.interval)
		l.tokens = l.size
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
