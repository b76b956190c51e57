package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// GuardConfig tunes the producer-side circuit breaker.
type GuardConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit.
	FailureThreshold int
	// SendAttempts bounds retries within one Send call.
	SendAttempts int
	// RetryDelay is the linear backoff unit between attempts (attempt n
	// waits n*RetryDelay).
	RetryDelay time.Duration
	// CoolDown is how long the circuit stays open. The reset fires
	// unconditionally when it elapses, traffic or not.
	CoolDown time.Duration
}

// DefaultGuardConfig opens after five consecutive failures and self-resets
// after thirty seconds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 5,
		SendAttempts:     3,
		RetryDelay:       200 * time.Millisecond,
		CoolDown:         30 * time.Second,
	}
}

// Guard wraps a queue client with a circuit breaker. While the circuit is
// open every Send is rejected with ErrQueueUnavailable without touching the
// backend. The failure counter is shared across callers; a success from any
// caller closes the loop back to a zeroed counter.
type Guard struct {
	client Client
	cfg    GuardConfig

	mu       sync.Mutex
	failures int
	healthy  bool

	sleep    func(ctx context.Context, d time.Duration) error
	schedule func(d time.Duration, f func())
}

// NewGuard wraps client with a circuit breaker.
func NewGuard(client Client, cfg GuardConfig) *Guard {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SendAttempts <= 0 {
		cfg.SendAttempts = 1
	}
	return &Guard{
		client:  client,
		cfg:     cfg,
		healthy: true,
		sleep:   sleepCtx,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Healthy reports whether the circuit is closed.
func (g *Guard) Healthy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.healthy
}

// Send attempts the enqueue through the breaker.
func (g *Guard) Send(ctx context.Context, msg Message) error {
	if !g.Healthy() {
		return fmt.Errorf("%w: circuit open", ErrQueueUnavailable)
	}

	var lastErr error
	for attempt := 1; attempt <= g.cfg.SendAttempts; attempt++ {
		err := g.client.Send(ctx, msg)
		if err == nil {
			g.recordSuccess()
			return nil
		}
		lastErr = err
		if opened := g.recordFailure(); opened {
			return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		if attempt < g.cfg.SendAttempts {
			if err := g.sleep(ctx, time.Duration(attempt)*g.cfg.RetryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("enqueue failed after %d attempts: %w", g.cfg.SendAttempts, lastErr)
}

func (g *Guard) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
	g.healthy = true
}

// recordFailure bumps the shared counter and reports whether this failure
// opened the circuit. Opening arms the unconditional cool-down reset.
func (g *Guard) recordFailure() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	if !g.healthy || g.failures < g.cfg.FailureThreshold {
		return !g.healthy
	}
	g.healthy = false
	g.schedule(g.cfg.CoolDown, g.reset)
	return true
}

func (g *Guard) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
	g.healthy = true
}

var _ Client = (*Guard)(nil)
