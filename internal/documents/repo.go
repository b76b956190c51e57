package documents

import (
	"context"
	"time"

	"tailor-backend/internal/score"
)

// Repo defines persistence for documents. Mark* operations are field-scoped
// and atomic at single-document granularity: they guard the status transition
// inside the update itself so concurrent writers cannot clobber a terminal
// record, and they never touch fields owned by the generation pipelines.
type Repo interface {
	// Create inserts a new queued document. Returns ErrAlreadyExists when
	// the ID (the idempotency key) is already present.
	Create(ctx context.Context, doc Document) error

	GetByID(ctx context.Context, id string) (Document, error)

	// MarkProcessing claims a queued document. ErrInvalidTransition when
	// the document is not in queued.
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error

	// MarkCompleted writes the terminal success state: text, method, score
	// and breakdown, in one update. ErrInvalidTransition unless processing.
	MarkCompleted(ctx context.Context, id, normalizedText, method string, detail score.Detail, completedAt time.Time) error

	// MarkFailed writes the terminal failure state with a human-readable
	// error. ErrInvalidTransition unless processing.
	MarkFailed(ctx context.Context, id, lastError string, failedAt time.Time) error
}
