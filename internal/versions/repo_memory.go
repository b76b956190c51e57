package versions

import (
	"context"
	"sort"
	"sync"
	"time"
)

type versionKey struct {
	documentID string
	kind       Kind
	key        string
}

// MemoryRepo stores generation versions in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byKey map[versionKey]Version
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byKey: make(map[versionKey]Version)}
}

// Create appends a new pending version.
func (r *MemoryRepo) Create(ctx context.Context, v Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := versionKey{v.DocumentID, v.Kind, v.VersionKey}
	if _, ok := r.byKey[k]; ok {
		return ErrAlreadyExists
	}
	if v.Status == "" {
		v.Status = StatusPending
	}
	r.byKey[k] = v
	return nil
}

// Get returns one version.
func (r *MemoryRepo) Get(ctx context.Context, documentID string, kind Kind, key string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byKey[versionKey{documentID, kind, key}]
	if !ok {
		return Version{}, ErrNotFound
	}
	return v, nil
}

// ListByDocument returns a document's versions of one kind, newest first.
func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string, kind Kind) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Version
	for k, v := range r.byKey {
		if k.documentID == documentID && k.kind == kind {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkCompleted finalizes a pending version with its result.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, documentID string, kind Kind, key, resultText string, matchScore *float64, matchSummary string, updatedAt time.Time) error {
	return r.finalize(ctx, documentID, kind, key, func(v *Version) {
		v.Status = StatusCompleted
		v.ResultText = resultText
		v.MatchScore = matchScore
		v.MatchSummary = matchSummary
		v.UpdatedAt = updatedAt
	})
}

// MarkFailed finalizes a pending version with an error.
func (r *MemoryRepo) MarkFailed(ctx context.Context, documentID string, kind Kind, key, errMsg string, updatedAt time.Time) error {
	return r.finalize(ctx, documentID, kind, key, func(v *Version) {
		v.Status = StatusFailed
		v.Error = errMsg
		v.UpdatedAt = updatedAt
	})
}

// Trim drops the oldest versions beyond maxCount.
func (r *MemoryRepo) Trim(ctx context.Context, documentID string, kind Kind, maxCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if maxCount <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []Version
	for k, v := range r.byKey {
		if k.documentID == documentID && k.kind == kind {
			matched = append(matched, v)
		}
	}
	if len(matched) <= maxCount {
		return nil
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	for _, v := range matched[:len(matched)-maxCount] {
		delete(r.byKey, versionKey{v.DocumentID, v.Kind, v.VersionKey})
	}
	return nil
}

func (r *MemoryRepo) finalize(ctx context.Context, documentID string, kind Kind, key string, apply func(*Version)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := versionKey{documentID, kind, key}
	v, ok := r.byKey[k]
	if !ok {
		return ErrNotFound
	}
	if v.Status.Terminal() {
		return ErrTerminal
	}
	apply(&v)
	r.byKey[k] = v
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
