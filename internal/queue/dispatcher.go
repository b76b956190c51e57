package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tailor-backend/internal/shared/telemetry"
)

// Handler consumes one delivered message. A non-nil error triggers
// redelivery up to the dispatcher's attempt cap.
type Handler func(ctx context.Context, msg Message) error

// RedeliveryPolicy bounds automatic redelivery after handler failures.
// Delay doubles per attempt from BaseDelay up to MaxDelay.
type RedeliveryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRedeliveryPolicy allows three deliveries per message.
func DefaultRedeliveryPolicy() RedeliveryPolicy {
	return RedeliveryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Dispatcher is an in-process queue backend. Each registered kind gets its
// own intake channel and bounded worker pool; kinds never share a queue.
// Delivery is at-least-once: a handler error causes redelivery with
// exponential delay until the attempt cap, then the message is dropped and
// logged.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[Kind]Handler
	intake   map[Kind]chan Message
	pools    map[Kind]int
	policy   RedeliveryPolicy
	buffer   int

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher builds a dispatcher with the given redelivery policy.
func NewDispatcher(policy RedeliveryPolicy) *Dispatcher {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Dispatcher{
		handlers: make(map[Kind]Handler),
		intake:   make(map[Kind]chan Message),
		pools:    make(map[Kind]int),
		policy:   policy,
		buffer:   64,
		sleep:    sleepCtx,
	}
}

// Register binds a handler and pool size to a kind. Must be called before
// Start.
func (d *Dispatcher) Register(kind Kind, concurrency int, h Handler) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("register %s: dispatcher already started", kind)
	}
	if _, dup := d.handlers[kind]; dup {
		return fmt.Errorf("register %s: handler already registered", kind)
	}
	d.handlers[kind] = h
	d.intake[kind] = make(chan Message, d.buffer)
	d.pools[kind] = concurrency
	return nil
}

// Start launches the worker pools. Pools run until Stop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("dispatcher already started")
	}
	if len(d.handlers) == 0 {
		return fmt.Errorf("dispatcher has no registered handlers")
	}
	ctx, d.cancel = context.WithCancel(ctx)
	for kind, handler := range d.handlers {
		ch := d.intake[kind]
		for i := 0; i < d.pools[kind]; i++ {
			d.wg.Add(1)
			go d.runWorker(ctx, kind, ch, handler)
		}
	}
	d.started = true
	return nil
}

// Stop cancels the pools and waits for in-flight handlers to return.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// Send enqueues a message for its kind's pool. It blocks while the intake
// buffer is full and fails once ctx is done.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	d.mu.Lock()
	ch, ok := d.intake[msg.Kind]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, msg.Kind)
	}
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, kind Kind, ch <-chan Message, handler Handler) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			d.deliver(ctx, kind, msg, handler)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, kind Kind, msg Message, handler Handler) {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= d.policy.MaxAttempts {
			telemetry.Error("job dropped after redelivery attempts exhausted",
				zap.String("kind", string(kind)),
				zap.String("idempotencyKey", msg.IdempotencyKey),
				zap.String("requestId", msg.RequestID),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return
		}
		delay := d.policy.BaseDelay << (attempt - 1)
		if d.policy.MaxDelay > 0 && delay > d.policy.MaxDelay {
			delay = d.policy.MaxDelay
		}
		telemetry.Warn("job failed, redelivering",
			zap.String("kind", string(kind)),
			zap.String("idempotencyKey", msg.IdempotencyKey),
			zap.String("requestId", msg.RequestID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := d.sleep(ctx, delay); err != nil {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Client = (*Dispatcher)(nil)
