package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tailor-backend/internal/llm"
	"tailor-backend/internal/queue"
	"tailor-backend/internal/score"
	"tailor-backend/internal/shared/metrics"
	"tailor-backend/internal/shared/telemetry"
	"tailor-backend/internal/shared/util"
	"tailor-backend/internal/versions"
)

// HandleCustomization produces a tailored rewrite plus a match evaluation
// for one (document, versionKey) pair. Two generation calls at most: the
// rewrite and the evaluation. An unusable evaluation never fails the job; it
// degrades to the local skill-overlap score.
func (w *Worker) HandleCustomization(ctx context.Context, msg queue.Message) error {
	start := w.now()
	v, done, err := w.claimVersion(ctx, msg, versions.KindCustomization, msg.JobDescription)
	if done || err != nil {
		return err
	}
	metrics.IncJobStarted(string(queue.KindCustomization))

	doc, err := w.Docs.GetByID(ctx, msg.DocumentID)
	if err != nil {
		return w.failVersion(ctx, v, queue.KindCustomization, start, fmt.Sprintf("load document: %v", err))
	}
	text := strings.TrimSpace(doc.NormalizedText)
	if len(text) < minGenerationChars {
		// Fail fast: no generation call for a document with nothing to
		// rewrite.
		return w.failVersion(ctx, v, queue.KindCustomization, start,
			fmt.Sprintf("insufficient extracted text (%d chars, need %d)", len(text), minGenerationChars))
	}

	jobDescription := v.InputContext
	rewritten, err := w.generate(ctx, llm.BuildRewritePrompt(text, jobDescription))
	if err != nil {
		return w.failVersion(ctx, v, queue.KindCustomization, start, fmt.Sprintf("rewrite: %v", err))
	}

	matchScore, matchSummary := w.evaluateMatch(ctx, rewritten, jobDescription)

	if err := w.completeVersion(ctx, v, rewritten, matchScore, matchSummary); err != nil {
		return w.failVersion(ctx, v, queue.KindCustomization, start, fmt.Sprintf("persist result: %v", err))
	}

	metrics.IncJobCompleted(string(queue.KindCustomization))
	metrics.ObserveJobDurationMs(string(queue.KindCustomization), float64(w.now().Sub(start).Milliseconds()))
	telemetry.Info("customization completed",
		zap.String("documentId", v.DocumentID),
		zap.String("versionKey", v.VersionKey))
	return nil
}

// evaluateMatch runs the match-evaluation call and parses its output. Any
// failure, call or parse, degrades to the deterministic local skill overlap
// instead of failing the job.
func (w *Worker) evaluateMatch(ctx context.Context, rewritten, jobDescription string) (*float64, string) {
	out, err := w.generate(ctx, llm.BuildMatchEvalPrompt(rewritten, jobDescription))
	if err == nil {
		if eval, parseErr := llm.ParseMatchEvaluation(out); parseErr == nil {
			summary := eval.Summary
			if eval.ShortlistProbability != nil {
				summary = strings.TrimSpace(fmt.Sprintf("%s (shortlist probability %.0f%%)", summary, *eval.ShortlistProbability))
			}
			return eval.MatchScore, summary
		} else {
			telemetry.Warn("match evaluation unparseable, using local skill match", zap.Error(parseErr))
		}
	} else {
		telemetry.Warn("match evaluation call failed, using local skill match", zap.Error(err))
	}

	local := score.SkillMatch(rewritten, jobDescription)
	pct := local.MatchPercent
	summary := fmt.Sprintf("local skill match: %d of %d skills covered",
		len(local.Matched), len(local.Matched)+len(local.Missing))
	return &pct, summary
}

// claimVersion resolves the version record for a generation message. done is
// true when there is nothing left to do (terminal duplicate, unusable
// message). A missing record is recreated from the message so remote
// producers work too.
func (w *Worker) claimVersion(ctx context.Context, msg queue.Message, kind versions.Kind, inputContext string) (versions.Version, bool, error) {
	if msg.DocumentID == "" || msg.VersionKey == "" {
		telemetry.Warn("generation message missing ids",
			zap.String("kind", string(kind)),
			zap.String("idempotencyKey", msg.IdempotencyKey))
		return versions.Version{}, true, nil
	}

	v, err := w.Vers.Get(ctx, msg.DocumentID, kind, msg.VersionKey)
	switch {
	case err == nil:
	case errors.Is(err, versions.ErrNotFound):
		now := w.now()
		v = versions.Version{
			DocumentID:   msg.DocumentID,
			Kind:         kind,
			VersionKey:   msg.VersionKey,
			Status:       versions.StatusPending,
			InputContext: inputContext,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if createErr := w.Vers.Create(ctx, v); createErr != nil && !errors.Is(createErr, versions.ErrAlreadyExists) {
			return versions.Version{}, false, fmt.Errorf("create version record: %w", createErr)
		}
	default:
		return versions.Version{}, false, fmt.Errorf("load version record: %w", err)
	}

	if v.Status.Terminal() {
		// Duplicate delivery of a finished job.
		return v, true, nil
	}
	return v, false, nil
}

// completeVersion writes the terminal success state and enforces retention.
func (w *Worker) completeVersion(ctx context.Context, v versions.Version, resultText string, matchScore *float64, matchSummary string) error {
	err := w.Vers.MarkCompleted(ctx, v.DocumentID, v.Kind, v.VersionKey, resultText, matchScore, matchSummary, w.now())
	if err != nil && !errors.Is(err, versions.ErrTerminal) {
		return err
	}
	if trimErr := w.Vers.Trim(ctx, v.DocumentID, v.Kind, v.Kind.MaxVersions()); trimErr != nil {
		telemetry.Warn("version retention trim failed",
			zap.String("documentId", v.DocumentID),
			zap.String("kind", string(v.Kind)),
			zap.Error(trimErr))
	}
	return nil
}

// failVersion writes the terminal failure, retrying the write like the
// ingestion path does. Only an unpersistable failure is reported back for
// redelivery.
func (w *Worker) failVersion(ctx context.Context, v versions.Version, kind queue.Kind, start time.Time, reason string) error {
	reason = util.Truncate(reason, 1000)
	var lastErr error
	for attempt := 1; attempt <= failedWriteAttempts; attempt++ {
		err := w.Vers.MarkFailed(ctx, v.DocumentID, v.Kind, v.VersionKey, reason, w.now())
		if err == nil || errors.Is(err, versions.ErrTerminal) {
			metrics.IncJobFailed(string(kind))
			metrics.ObserveJobDurationMs(string(kind), float64(w.now().Sub(start).Milliseconds()))
			telemetry.Warn("generation job failed",
				zap.String("documentId", v.DocumentID),
				zap.String("kind", string(v.Kind)),
				zap.String("versionKey", v.VersionKey),
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
	return fmt.Errorf("persist failure for version %s/%s/%s: %w", v.DocumentID, v.Kind, v.VersionKey, lastErr)
}
