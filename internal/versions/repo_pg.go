package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Terminal guards live in the
// UPDATE's WHERE clause; Trim uses a keyset delete over created_at.
type PGRepo struct {
	DB *sql.DB
}

// Create appends a new pending version.
func (r *PGRepo) Create(ctx context.Context, v Version) error {
	if v.Status == "" {
		v.Status = StatusPending
	}
	const query = `
INSERT INTO generation_versions (document_id, kind, version_key, status, input_context, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (document_id, kind, version_key) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, v.DocumentID, string(v.Kind), v.VersionKey, string(v.Status), v.InputContext, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get returns one version.
func (r *PGRepo) Get(ctx context.Context, documentID string, kind Kind, key string) (Version, error) {
	const query = `
SELECT document_id, kind, version_key, status, input_context, result_text, match_score, match_summary, error, created_at, updated_at
FROM generation_versions
WHERE document_id = $1 AND kind = $2 AND version_key = $3`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, documentID, string(kind), key))
}

// ListByDocument returns a document's versions of one kind, newest first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string, kind Kind) ([]Version, error) {
	const query = `
SELECT document_id, kind, version_key, status, input_context, result_text, match_score, match_summary, error, created_at, updated_at
FROM generation_versions
WHERE document_id = $1 AND kind = $2
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, documentID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MarkCompleted finalizes a pending version with its result.
func (r *PGRepo) MarkCompleted(ctx context.Context, documentID string, kind Kind, key, resultText string, matchScore *float64, matchSummary string, updatedAt time.Time) error {
	const query = `
UPDATE generation_versions
SET status = $1, result_text = $2, match_score = $3, match_summary = $4, updated_at = $5
WHERE document_id = $6 AND kind = $7 AND version_key = $8 AND status = $9`
	return r.guardedUpdate(ctx, documentID, kind, key, query,
		string(StatusCompleted), resultText, matchScore, matchSummary, updatedAt,
		documentID, string(kind), key, string(StatusPending))
}

// MarkFailed finalizes a pending version with an error.
func (r *PGRepo) MarkFailed(ctx context.Context, documentID string, kind Kind, key, errMsg string, updatedAt time.Time) error {
	const query = `
UPDATE generation_versions
SET status = $1, error = $2, updated_at = $3
WHERE document_id = $4 AND kind = $5 AND version_key = $6 AND status = $7`
	return r.guardedUpdate(ctx, documentID, kind, key, query,
		string(StatusFailed), errMsg, updatedAt,
		documentID, string(kind), key, string(StatusPending))
}

// Trim drops the oldest versions beyond maxCount.
func (r *PGRepo) Trim(ctx context.Context, documentID string, kind Kind, maxCount int) error {
	if maxCount <= 0 {
		return nil
	}
	const query = `
DELETE FROM generation_versions
WHERE document_id = $1 AND kind = $2 AND version_key NOT IN (
    SELECT version_key FROM generation_versions
    WHERE document_id = $1 AND kind = $2
    ORDER BY created_at DESC
    LIMIT $3
)`
	if _, err := r.DB.ExecContext(ctx, query, documentID, string(kind), maxCount); err != nil {
		return fmt.Errorf("trim versions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Version, error) {
	var (
		v          Version
		kind       string
		status     string
		resultText sql.NullString
		matchScore sql.NullFloat64
		summary    sql.NullString
		errMsg     sql.NullString
	)
	err := row.Scan(&v.DocumentID, &kind, &v.VersionKey, &status, &v.InputContext,
		&resultText, &matchScore, &summary, &errMsg, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrNotFound
	}
	if err != nil {
		return Version{}, fmt.Errorf("scan version: %w", err)
	}
	v.Kind = Kind(kind)
	v.Status = Status(status)
	v.ResultText = resultText.String
	v.MatchSummary = summary.String
	v.Error = errMsg.String
	if matchScore.Valid {
		s := matchScore.Float64
		v.MatchScore = &s
	}
	return v, nil
}

func (r *PGRepo) guardedUpdate(ctx context.Context, documentID string, kind Kind, key, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var status string
		err := r.DB.QueryRowContext(ctx,
			`SELECT status FROM generation_versions WHERE document_id = $1 AND kind = $2 AND version_key = $3`,
			documentID, string(kind), key).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrTerminal
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
