package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"tailor-backend/internal/documents"
	"tailor-backend/internal/queue"
	"tailor-backend/internal/score"
	"tailor-backend/internal/shared/metrics"
	"tailor-backend/internal/shared/telemetry"
	"tailor-backend/internal/shared/util"
)

// HandleIngest claims a queued document, runs the extraction chain and the
// scorer, and lands the result in one terminal write. A failure anywhere
// after the claim becomes a terminal failed state; the handler only returns
// an error (triggering redelivery) when it could not reach a terminal state
// at all.
func (w *Worker) HandleIngest(ctx context.Context, msg queue.Message) error {
	start := w.now()
	id := msg.DocumentID
	if id == "" {
		telemetry.Warn("ingest message missing document id", zap.String("idempotencyKey", msg.IdempotencyKey))
		return nil
	}

	err := w.Docs.MarkProcessing(ctx, id, start)
	switch {
	case err == nil:
	case errors.Is(err, documents.ErrInvalidTransition):
		// Another delivery already claimed or finished it.
		return nil
	case errors.Is(err, documents.ErrNotFound):
		telemetry.Warn("ingest message for unknown document", zap.String("documentId", id))
		return nil
	default:
		return fmt.Errorf("claim document %s: %w", id, err)
	}
	metrics.IncJobStarted(string(queue.KindIngest))

	locator := msg.SourceLocator
	fileName := msg.FileName
	if locator == "" {
		doc, getErr := w.Docs.GetByID(ctx, id)
		if getErr != nil {
			return w.failIngest(ctx, id, start, fmt.Sprintf("load document: %v", getErr))
		}
		locator, fileName = doc.SourceLocator, doc.FileName
	}

	data, err := w.fetchSource(ctx, locator)
	if err != nil {
		return w.failIngest(ctx, id, start, fmt.Sprintf("fetch source: %v", err))
	}

	result, err := w.Chain.Extract(ctx, data, fileName)
	if err != nil {
		return w.failIngest(ctx, id, start, fmt.Sprintf("extract: %v", err))
	}

	detail := score.Score(result.Text)

	if err := w.Docs.MarkCompleted(ctx, id, result.Text, result.Method, detail, w.now()); err != nil {
		if errors.Is(err, documents.ErrInvalidTransition) {
			return nil
		}
		return w.failIngest(ctx, id, start, fmt.Sprintf("persist result: %v", err))
	}

	metrics.IncJobCompleted(string(queue.KindIngest))
	metrics.ObserveJobDurationMs(string(queue.KindIngest), float64(w.now().Sub(start).Milliseconds()))
	telemetry.Info("document ingested",
		zap.String("documentId", id),
		zap.String("method", result.Method),
		zap.Int("score", detail.Score),
		zap.String("sourceSha", util.ContentHash(data)))
	return nil
}

func (w *Worker) fetchSource(ctx context.Context, locator string) ([]byte, error) {
	rc, err := w.Store.Open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("source object is empty")
	}
	return data, nil
}

// failIngest writes the terminal failure, retrying the write itself a few
// times. Only when the failure cannot be persisted does the handler report
// an error so the message is redelivered.
func (w *Worker) failIngest(ctx context.Context, id string, start time.Time, reason string) error {
	reason = util.Truncate(reason, 1000)
	var lastErr error
	for attempt := 1; attempt <= failedWriteAttempts; attempt++ {
		err := w.Docs.MarkFailed(ctx, id, reason, w.now())
		if err == nil || errors.Is(err, documents.ErrInvalidTransition) {
			metrics.IncJobFailed(string(queue.KindIngest))
			metrics.ObserveJobDurationMs(string(queue.KindIngest), float64(w.now().Sub(start).Milliseconds()))
			telemetry.Warn("document ingestion failed",
				zap.String("documentId", id),
				zap.String("reason", reason))
			return nil
		}
		lastErr = err
		if attempt < failedWriteAttempts {
			if err := w.sleep(ctx, time.Duration(attempt)*100*time.Millisecond); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("persist failure for document %s: %w", id, lastErr)
}
