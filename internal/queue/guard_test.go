package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyClient struct {
	failures int
	sent     int
	calls    int
}

func (f *flakyClient) Send(ctx context.Context, msg Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("backend down")
	}
	f.sent++
	return nil
}

func newTestGuard(client Client, cfg GuardConfig) (*Guard, *func()) {
	g := NewGuard(client, cfg)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	var pendingReset func()
	g.schedule = func(d time.Duration, f func()) { pendingReset = f }
	return g, &pendingReset
}

func TestGuardRetriesWithinSend(t *testing.T) {
	client := &flakyClient{failures: 2}
	g, _ := newTestGuard(client, GuardConfig{FailureThreshold: 5, SendAttempts: 3, RetryDelay: time.Millisecond, CoolDown: time.Second})

	if err := g.Send(context.Background(), Message{Kind: KindIngest}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if client.calls != 3 || client.sent != 1 {
		t.Fatalf("calls = %d sent = %d, want 3/1", client.calls, client.sent)
	}
	if !g.Healthy() {
		t.Fatal("success should leave the circuit closed")
	}
}

func TestGuardOpensAtThresholdAndRejectsWithoutBackend(t *testing.T) {
	client := &flakyClient{failures: 100}
	g, _ := newTestGuard(client, GuardConfig{FailureThreshold: 5, SendAttempts: 3, RetryDelay: time.Millisecond, CoolDown: time.Second})

	ctx := context.Background()
	if err := g.Send(ctx, Message{}); err == nil {
		t.Fatal("expected failure")
	}
	// 3 attempts so far. Two more failures cross the threshold mid-call.
	err := g.Send(ctx, Message{})
	if !errors.Is(err, ErrQueueUnavailable) {
		t.Fatalf("expected ErrQueueUnavailable at threshold, got %v", err)
	}
	if g.Healthy() {
		t.Fatal("circuit should be open")
	}
	callsWhenOpened := client.calls
	if callsWhenOpened != 5 {
		t.Fatalf("backend calls = %d, want 5 (threshold)", callsWhenOpened)
	}

	// Open circuit: rejected immediately, backend untouched.
	if err := g.Send(ctx, Message{}); !errors.Is(err, ErrQueueUnavailable) {
		t.Fatalf("expected ErrQueueUnavailable while open, got %v", err)
	}
	if client.calls != callsWhenOpened {
		t.Fatalf("open circuit touched backend: calls = %d", client.calls)
	}
}

func TestGuardCoolDownResetIsUnconditional(t *testing.T) {
	client := &flakyClient{failures: 5}
	g, reset := newTestGuard(client, GuardConfig{FailureThreshold: 5, SendAttempts: 5, RetryDelay: time.Millisecond, CoolDown: time.Second})

	ctx := context.Background()
	if err := g.Send(ctx, Message{}); !errors.Is(err, ErrQueueUnavailable) {
		t.Fatalf("expected circuit to open, got %v", err)
	}
	if *reset == nil {
		t.Fatal("cool-down reset was not scheduled")
	}

	// No probe traffic arrives. The timer alone closes the circuit.
	(*reset)()
	if !g.Healthy() {
		t.Fatal("circuit should be closed after cool-down")
	}

	// Counter was zeroed: the next send goes through cleanly.
	if err := g.Send(ctx, Message{}); err != nil {
		t.Fatalf("send after reset: %v", err)
	}
	if client.sent != 1 {
		t.Fatalf("sent = %d, want 1", client.sent)
	}
}

func TestGuardSuccessResetsCounter(t *testing.T) {
	client := &flakyClient{failures: 3}
	g, _ := newTestGuard(client, GuardConfig{FailureThreshold: 5, SendAttempts: 4, RetryDelay: time.Millisecond, CoolDown: time.Second})

	// Three failures then success within one call.
	if err := g.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	g.mu.Lock()
	failures := g.failures
	g.mu.Unlock()
	if failures != 0 {
		t.Fatalf("failures = %d, want 0 after success", failures)
	}
}
