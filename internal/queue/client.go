package queue

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrQueueUnavailable means the health guard is open and the enqueue was
	// rejected without touching the backend.
	ErrQueueUnavailable = errors.New("queue unavailable")
	// ErrUnknownKind means no handler or route exists for the message kind.
	ErrUnknownKind = errors.New("unknown job kind")
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Router fans messages out to per-kind clients. The worker deployment keeps
// ingestion and generation traffic on separate queues.
type Router struct {
	routes map[Kind]Client
}

// NewRouter builds a Router over a kind-to-client table.
func NewRouter(routes map[Kind]Client) *Router {
	return &Router{routes: routes}
}

// Send forwards the message to the client registered for its kind.
func (r *Router) Send(ctx context.Context, msg Message) error {
	c, ok := r.routes[msg.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, msg.Kind)
	}
	return c.Send(ctx, msg)
}

var _ Client = (*Router)(nil)
