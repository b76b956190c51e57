// Package documents holds the durable record of an uploaded resume: its
// processing status, extracted text, and heuristic score. The document ID
// doubles as the ingestion job's idempotency key.
package documents

import (
	"time"

	"tailor-backend/internal/score"
)

// Status is a document's position in the ingestion lifecycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition encodes the document state machine:
// queued -> processing -> completed | failed. Terminal states never move.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Document represents an uploaded resume and its derived state.
type Document struct {
	ID            string
	Status        Status
	SourceLocator string
	FileName      string

	NormalizedText   string
	ExtractionMethod string
	Score            *int
	ScoreDetail      *score.Detail

	LastError string

	QueuedAt    time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
}
