package documents

import (
	"context"
	"sync"
	"time"

	"tailor-backend/internal/score"
)

// MemoryRepo stores documents in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Document)}
}

// Create stores the document if its ID is new.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[doc.ID]; ok {
		return ErrAlreadyExists
	}
	if doc.Status == "" {
		doc.Status = StatusQueued
	}
	r.byID[doc.ID] = doc
	return nil
}

// GetByID returns a document by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// MarkProcessing claims a queued document.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	return r.update(ctx, id, StatusProcessing, func(doc *Document) {
		doc.StartedAt = &startedAt
	})
}

// MarkCompleted writes the terminal success state.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, id, normalizedText, method string, detail score.Detail, completedAt time.Time) error {
	return r.update(ctx, id, StatusCompleted, func(doc *Document) {
		doc.NormalizedText = normalizedText
		doc.ExtractionMethod = method
		s := detail.Score
		doc.Score = &s
		d := detail
		doc.ScoreDetail = &d
		doc.CompletedAt = &completedAt
	})
}

// MarkFailed writes the terminal failure state.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id, lastError string, failedAt time.Time) error {
	return r.update(ctx, id, StatusFailed, func(doc *Document) {
		doc.LastError = lastError
		doc.FailedAt = &failedAt
	})
}

func (r *MemoryRepo) update(ctx context.Context, id string, to Status, apply func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(doc.Status, to) {
		return ErrInvalidTransition
	}
	doc.Status = to
	apply(&doc)
	r.byID[id] = doc
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
