package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"tailor-backend/internal/score"
)

func newQueuedDoc(t *testing.T, repo *MemoryRepo, id string) {
	t.Helper()
	err := repo.Create(context.Background(), Document{
		ID:            id,
		SourceLocator: "objects/" + id,
		FileName:      "resume.pdf",
		QueuedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestMemoryRepoDuplicateCreate(t *testing.T) {
	repo := NewMemoryRepo()
	newQueuedDoc(t, repo, "doc-1")

	err := repo.Create(context.Background(), Document{ID: "doc-1"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryRepoLifecycle(t *testing.T) {
	repo := NewMemoryRepo()
	newQueuedDoc(t, repo, "doc-1")
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.MarkProcessing(ctx, "doc-1", now); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	detail := score.Score("jane@example.com\nExperience\nACME")
	if err := repo.MarkCompleted(ctx, "doc-1", "extracted text", "pdf_native", detail, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	doc, err := repo.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", doc.Status)
	}
	if doc.NormalizedText == "" || doc.Score == nil || doc.ScoreDetail == nil {
		t.Fatalf("completed document missing payload: %+v", doc)
	}
	if *doc.Score != detail.Score {
		t.Fatalf("score = %d, want %d", *doc.Score, detail.Score)
	}
}

func TestMemoryRepoTerminalIsFinal(t *testing.T) {
	repo := NewMemoryRepo()
	newQueuedDoc(t, repo, "doc-1")
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.MarkProcessing(ctx, "doc-1", now); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := repo.MarkFailed(ctx, "doc-1", "extraction failed", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := repo.MarkProcessing(ctx, "doc-1", now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after terminal state, got %v", err)
	}
	if err := repo.MarkCompleted(ctx, "doc-1", "text", "pdf_native", score.Detail{}, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after terminal state, got %v", err)
	}

	doc, _ := repo.GetByID(ctx, "doc-1")
	if doc.Status != StatusFailed || doc.LastError == "" {
		t.Fatalf("failed document must keep its error: %+v", doc)
	}
}

func TestMemoryRepoSkipQueuedGuard(t *testing.T) {
	repo := NewMemoryRepo()
	newQueuedDoc(t, repo, "doc-1")

	err := repo.MarkCompleted(context.Background(), "doc-1", "text", "pdf_native", score.Detail{}, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completing a queued document must fail, got %v", err)
	}
}
