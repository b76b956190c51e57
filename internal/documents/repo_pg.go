package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tailor-backend/internal/score"
)

// PGRepo implements Repo using Postgres. Status transitions are guarded in
// the UPDATE's WHERE clause, which is what makes the Mark* writes atomic
// without a surrounding transaction.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new queued document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	if doc.Status == "" {
		doc.Status = StatusQueued
	}
	const query = `
INSERT INTO documents (id, status, source_locator, file_name, queued_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query, doc.ID, string(doc.Status), doc.SourceLocator, doc.FileName, doc.QueuedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
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

// GetByID returns a document by its ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT id, status, source_locator, file_name, normalized_text, extraction_method,
       score, score_detail, last_error, queued_at, started_at, completed_at, failed_at
FROM documents WHERE id = $1`

	var (
		doc        Document
		status     string
		text       sql.NullString
		method     sql.NullString
		scoreVal   sql.NullInt64
		detailJSON []byte
		lastError  sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &status, &doc.SourceLocator, &doc.FileName, &text, &method,
		&scoreVal, &detailJSON, &lastError, &doc.QueuedAt, &doc.StartedAt, &doc.CompletedAt, &doc.FailedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}

	doc.Status = Status(status)
	doc.NormalizedText = text.String
	doc.ExtractionMethod = method.String
	doc.LastError = lastError.String
	if scoreVal.Valid {
		v := int(scoreVal.Int64)
		doc.Score = &v
	}
	if len(detailJSON) > 0 {
		var detail score.Detail
		if err := json.Unmarshal(detailJSON, &detail); err == nil {
			doc.ScoreDetail = &detail
		}
	}
	return doc, nil
}

// MarkProcessing claims a queued document.
func (r *PGRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `
UPDATE documents SET status = $1, started_at = $2
WHERE id = $3 AND status = $4`
	return r.guardedUpdate(ctx, id, query, string(StatusProcessing), startedAt, id, string(StatusQueued))
}

// MarkCompleted writes text, method, score and breakdown in one update.
func (r *PGRepo) MarkCompleted(ctx context.Context, id, normalizedText, method string, detail score.Detail, completedAt time.Time) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal score detail: %w", err)
	}
	const query = `
UPDATE documents
SET status = $1, normalized_text = $2, extraction_method = $3, score = $4, score_detail = $5, completed_at = $6
WHERE id = $7 AND status = $8`
	return r.guardedUpdate(ctx, id, query,
		string(StatusCompleted), normalizedText, method, detail.Score, detailJSON, completedAt,
		id, string(StatusProcessing))
}

// MarkFailed writes the terminal failure state.
func (r *PGRepo) MarkFailed(ctx context.Context, id, lastError string, failedAt time.Time) error {
	const query = `
UPDATE documents SET status = $1, last_error = $2, failed_at = $3
WHERE id = $4 AND status = $5`
	return r.guardedUpdate(ctx, id, query, string(StatusFailed), lastError, failedAt, id, string(StatusProcessing))
}

func (r *PGRepo) guardedUpdate(ctx context.Context, id, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the row is missing or its status moved on; look to decide.
		var status string
		err := r.DB.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
