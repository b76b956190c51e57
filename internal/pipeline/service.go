// Package pipeline is the producer-side facade: it accepts ingestion and
// generation submissions, enforces idempotency against persisted state, and
// hands jobs to the queue. Reads are served purely from the repos; the queue
// is never introspected.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tailor-backend/internal/documents"
	"tailor-backend/internal/queue"
	"tailor-backend/internal/shared/telemetry"
	"tailor-backend/internal/versions"
)

// messageVersion tags the wire format for queue payloads.
const messageVersion = 1

// JobState is the submitter-facing view of a job's progress.
type JobState string

const (
	StatePending   JobState = "pending"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// DocumentStatus is the read-path result for an ingestion job.
type DocumentStatus struct {
	State    JobState
	Document documents.Document
}

// VersionStatus is the read-path result for a generation job.
type VersionStatus struct {
	State   JobState
	Version versions.Version
}

// Service contains the producer-side business logic.
type Service struct {
	Docs  documents.Repo
	Vers  versions.Repo
	Queue queue.Client

	now func() time.Time
}

// NewService builds a Service over the given repos and queue client. The
// queue client is normally a Guard-wrapped dispatcher or SQS producer.
func NewService(docs documents.Repo, vers versions.Repo, q queue.Client) *Service {
	return &Service{
		Docs:  docs,
		Vers:  vers,
		Queue: q,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SubmitIngestion accepts a document for extraction and scoring. The
// document id doubles as the idempotency key: resubmitting an id whose
// document is already processing or terminal is a no-op, resubmitting one
// still queued re-enqueues it (delivery is at-least-once, so duplicates are
// safe).
func (s *Service) SubmitIngestion(ctx context.Context, documentID, sourceLocator, fileName string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" || strings.TrimSpace(sourceLocator) == "" {
		return errors.New("documentID and sourceLocator are required")
	}

	now := s.now()
	doc := documents.Document{
		ID:            documentID,
		Status:        documents.StatusQueued,
		SourceLocator: sourceLocator,
		FileName:      fileName,
		QueuedAt:      now,
	}
	err := s.Docs.Create(ctx, doc)
	switch {
	case err == nil:
	case errors.Is(err, documents.ErrAlreadyExists):
		existing, getErr := s.Docs.GetByID(ctx, documentID)
		if getErr != nil {
			return fmt.Errorf("load existing document: %w", getErr)
		}
		if existing.Status != documents.StatusQueued {
			// Already claimed or finished; nothing to enqueue.
			return nil
		}
	default:
		return fmt.Errorf("create document: %w", err)
	}

	msg := queue.Message{
		Kind:           queue.KindIngest,
		IdempotencyKey: documentID,
		RequestID:      uuid.NewString(),
		DocumentID:     documentID,
		SourceLocator:  sourceLocator,
		FileName:       fileName,
		EnqueuedAt:     now.Format(time.RFC3339),
		Version:        messageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue ingestion: %w", err)
	}
	telemetry.Info("ingestion submitted",
		zap.String("documentId", documentID),
		zap.String("requestId", msg.RequestID))
	return nil
}

// SubmitCustomization requests a tailored rewrite of an ingested document.
// versionKey is the caller-supplied idempotency key: a key that already
// reached a terminal state short-circuits without another generation call.
func (s *Service) SubmitCustomization(ctx context.Context, documentID, versionKey, jobDescription string) error {
	return s.submitGeneration(ctx, versions.KindCustomization, documentID, versionKey, jobDescription)
}

// SubmitShortMessage requests a short outreach message derived from the
// given source text. Idempotency matches SubmitCustomization.
func (s *Service) SubmitShortMessage(ctx context.Context, documentID, versionKey, sourceText string) error {
	return s.submitGeneration(ctx, versions.KindMessage, documentID, versionKey, sourceText)
}

func (s *Service) submitGeneration(ctx context.Context, kind versions.Kind, documentID, versionKey, inputContext string) error {
	documentID = strings.TrimSpace(documentID)
	versionKey = strings.TrimSpace(versionKey)
	if documentID == "" || versionKey == "" {
		return errors.New("documentID and versionKey are required")
	}

	if _, err := s.Docs.GetByID(ctx, documentID); err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	existing, err := s.Vers.Get(ctx, documentID, kind, versionKey)
	switch {
	case err == nil:
		if existing.Status.Terminal() {
			return nil
		}
		// Pending: fall through and re-enqueue. The worker treats a
		// terminal record as already done, so duplicates are harmless.
	case errors.Is(err, versions.ErrNotFound):
		now := s.now()
		v := versions.Version{
			DocumentID:   documentID,
			Kind:         kind,
			VersionKey:   versionKey,
			Status:       versions.StatusPending,
			InputContext: inputContext,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.Vers.Create(ctx, v); err != nil && !errors.Is(err, versions.ErrAlreadyExists) {
			return fmt.Errorf("create version: %w", err)
		}
	default:
		return fmt.Errorf("load version: %w", err)
	}

	msg := queue.Message{
		Kind:           queueKind(kind),
		IdempotencyKey: fmt.Sprintf("%s/%s/%s", documentID, kind, versionKey),
		RequestID:      uuid.NewString(),
		DocumentID:     documentID,
		VersionKey:     versionKey,
		EnqueuedAt:     s.now().Format(time.RFC3339),
		Version:        messageVersion,
	}
	switch kind {
	case versions.KindCustomization:
		msg.JobDescription = inputContext
	case versions.KindMessage:
		msg.SourceText = inputContext
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	telemetry.Info("generation submitted",
		zap.String("documentId", documentID),
		zap.String("kind", string(kind)),
		zap.String("versionKey", versionKey),
		zap.String("requestId", msg.RequestID))
	return nil
}

// GetDocumentStatus reads an ingestion job's state from persisted data.
func (s *Service) GetDocumentStatus(ctx context.Context, documentID string) (DocumentStatus, error) {
	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		return DocumentStatus{}, err
	}
	state := StatePending
	switch doc.Status {
	case documents.StatusCompleted:
		state = StateCompleted
	case documents.StatusFailed:
		state = StateFailed
	}
	return DocumentStatus{State: state, Document: doc}, nil
}

// GetVersionStatus reads a generation job's state from persisted data.
func (s *Service) GetVersionStatus(ctx context.Context, documentID string, kind versions.Kind, versionKey string) (VersionStatus, error) {
	v, err := s.Vers.Get(ctx, documentID, kind, versionKey)
	if err != nil {
		return VersionStatus{}, err
	}
	state := StatePending
	switch v.Status {
	case versions.StatusCompleted:
		state = StateCompleted
	case versions.StatusFailed:
		state = StateFailed
	}
	return VersionStatus{State: state, Version: v}, nil
}

// ListVersions returns a document's generation history, newest first.
func (s *Service) ListVersions(ctx context.Context, documentID string, kind versions.Kind) ([]versions.Version, error) {
	return s.Vers.ListByDocument(ctx, documentID, kind)
}

func queueKind(kind versions.Kind) queue.Kind {
	if kind == versions.KindMessage {
		return queue.KindMessage
	}
	return queue.KindCustomization
}
