package versions

import (
	"context"
	"time"
)

// Repo defines persistence for generation versions. Writes are atomic at
// single-version granularity and never touch the parent document row, so the
// ingestion and generation pipelines can work the same document concurrently.
type Repo interface {
	// Create appends a new pending version. Returns ErrAlreadyExists when
	// the (document, kind, versionKey) triple is already present.
	Create(ctx context.Context, v Version) error

	Get(ctx context.Context, documentID string, kind Kind, versionKey string) (Version, error)

	// ListByDocument returns a document's versions of one kind, newest first.
	ListByDocument(ctx context.Context, documentID string, kind Kind) ([]Version, error)

	// MarkCompleted finalizes a pending version with its result payload.
	// ErrTerminal when the version has already finished.
	MarkCompleted(ctx context.Context, documentID string, kind Kind, versionKey, resultText string, matchScore *float64, matchSummary string, updatedAt time.Time) error

	// MarkFailed finalizes a pending version with an error, preserving the
	// stored input context. ErrTerminal when already finished.
	MarkFailed(ctx context.Context, documentID string, kind Kind, versionKey, errMsg string, updatedAt time.Time) error

	// Trim drops the oldest versions beyond maxCount for (document, kind).
	Trim(ctx context.Context, documentID string, kind Kind, maxCount int) error
}
