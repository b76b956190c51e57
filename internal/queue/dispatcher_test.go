package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestDispatcher(policy RedeliveryPolicy) *Dispatcher {
	d := NewDispatcher(policy)
	d.sleep = func(context.Context, time.Duration) error { return nil }
	return d
}

func TestDispatcherRoutesByKind(t *testing.T) {
	d := newTestDispatcher(DefaultRedeliveryPolicy())

	var ingests, messages atomic.Int32
	done := make(chan struct{}, 2)
	if err := d.Register(KindIngest, 2, func(ctx context.Context, msg Message) error {
		ingests.Add(1)
		done <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("register ingest: %v", err)
	}
	if err := d.Register(KindMessage, 1, func(ctx context.Context, msg Message) error {
		messages.Add(1)
		done <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("register message: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	ctx := context.Background()
	if err := d.Send(ctx, Message{Kind: KindIngest, IdempotencyKey: "a"}); err != nil {
		t.Fatalf("send ingest: %v", err)
	}
	if err := d.Send(ctx, Message{Kind: KindMessage, IdempotencyKey: "b"}); err != nil {
		t.Fatalf("send message: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handlers")
		}
	}
	if ingests.Load() != 1 || messages.Load() != 1 {
		t.Fatalf("ingests = %d, messages = %d, want 1 each", ingests.Load(), messages.Load())
	}
}

func TestDispatcherUnknownKindRejected(t *testing.T) {
	d := newTestDispatcher(DefaultRedeliveryPolicy())
	if err := d.Register(Kind("bogus"), 1, func(context.Context, Message) error { return nil }); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind on register, got %v", err)
	}
	if err := d.Register(KindIngest, 1, func(context.Context, Message) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Send(context.Background(), Message{Kind: KindMessage}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind on send, got %v", err)
	}
}

func TestDispatcherRedeliversUpToCap(t *testing.T) {
	d := newTestDispatcher(RedeliveryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	var attempts atomic.Int32
	dropped := make(chan struct{})
	if err := d.Register(KindIngest, 1, func(ctx context.Context, msg Message) error {
		n := attempts.Add(1)
		if n == 3 {
			defer close(dropped)
		}
		return errors.New("handler exploded")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if err := d.Send(context.Background(), Message{Kind: KindIngest, IdempotencyKey: "a"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for redeliveries")
	}
	// Give the pool a beat to prove no fourth delivery happens.
	time.Sleep(50 * time.Millisecond)
	if got := attempts.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestDispatcherRedeliveryEventuallySucceeds(t *testing.T) {
	d := newTestDispatcher(RedeliveryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond})

	var attempts atomic.Int32
	done := make(chan struct{})
	if err := d.Register(KindCustomization, 1, func(ctx context.Context, msg Message) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if err := d.Send(context.Background(), Message{Kind: KindCustomization, IdempotencyKey: "k"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for success")
	}
	if attempts.Load() != 3 {
		t.Fatalf("attempts = %d, want 3", attempts.Load())
	}
}

func TestDispatcherSerializedPoolNeverOverlaps(t *testing.T) {
	d := newTestDispatcher(DefaultRedeliveryPolicy())

	var mu sync.Mutex
	inFlight, peak := 0, 0
	var wg sync.WaitGroup
	wg.Add(5)
	if err := d.Register(KindCustomization, 1, func(ctx context.Context, msg Message) error {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		wg.Done()
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	for i := 0; i < 5; i++ {
		if err := d.Send(context.Background(), Message{Kind: KindCustomization}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if peak != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak)
	}
}
