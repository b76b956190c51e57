package versions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func pendingVersion(key string, createdAt time.Time) Version {
	return Version{
		DocumentID:   "doc-1",
		Kind:         KindCustomization,
		VersionKey:   key,
		InputContext: "senior go engineer",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestMemoryRepoDuplicateVersionKey(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, pendingVersion("v1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, pendingVersion("v1", now)); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Same key under the other kind is a distinct version.
	other := pendingVersion("v1", now)
	other.Kind = KindMessage
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create other kind: %v", err)
	}
}

func TestMemoryRepoTerminalNeverReopens(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, pendingVersion("v1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	matchScore := 72.5
	if err := repo.MarkCompleted(ctx, "doc-1", KindCustomization, "v1", "rewritten", &matchScore, "good fit", now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if err := repo.MarkFailed(ctx, "doc-1", KindCustomization, "v1", "late failure", now); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}

	v, err := repo.Get(ctx, "doc-1", KindCustomization, "v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Status != StatusCompleted || v.ResultText != "rewritten" || v.MatchScore == nil || *v.MatchScore != 72.5 {
		t.Fatalf("completed version corrupted: %+v", v)
	}
}

func TestMemoryRepoFailureKeepsInputContext(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, pendingVersion("v1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkFailed(ctx, "doc-1", KindCustomization, "v1", "generation exploded", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	v, _ := repo.Get(ctx, "doc-1", KindCustomization, "v1")
	if v.Status != StatusFailed || v.Error == "" {
		t.Fatalf("failed version missing error: %+v", v)
	}
	if v.InputContext != "senior go engineer" {
		t.Fatalf("input context lost on failure: %+v", v)
	}
}

func TestMemoryRepoTrimKeepsNewest(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 7; i++ {
		v := pendingVersion(fmt.Sprintf("v%d", i), base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, v); err != nil {
			t.Fatalf("create v%d: %v", i, err)
		}
	}

	if err := repo.Trim(ctx, "doc-1", KindCustomization, 3); err != nil {
		t.Fatalf("trim: %v", err)
	}

	remaining, err := repo.ListByDocument(ctx, "doc-1", KindCustomization)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("remaining = %d, want 3", len(remaining))
	}
	for i, v := range remaining {
		want := fmt.Sprintf("v%d", 6-i)
		if v.VersionKey != want {
			t.Fatalf("remaining[%d] = %s, want %s", i, v.VersionKey, want)
		}
	}
}

func TestKindRetentionCaps(t *testing.T) {
	if KindCustomization.MaxVersions() != 50 {
		t.Fatalf("customization cap = %d, want 50", KindCustomization.MaxVersions())
	}
	if KindMessage.MaxVersions() != 30 {
		t.Fatalf("message cap = %d, want 30", KindMessage.MaxVersions())
	}
}
