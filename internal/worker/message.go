package worker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tailor-backend/internal/llm"
	"tailor-backend/internal/queue"
	"tailor-backend/internal/shared/metrics"
	"tailor-backend/internal/shared/telemetry"
	"tailor-backend/internal/versions"
)

// HandleMessage produces a short outreach message from the version's source
// text. One generation call; no match evaluation.
func (w *Worker) HandleMessage(ctx context.Context, msg queue.Message) error {
	start := w.now()
	v, done, err := w.claimVersion(ctx, msg, versions.KindMessage, msg.SourceText)
	if done || err != nil {
		return err
	}
	metrics.IncJobStarted(string(queue.KindMessage))

	source := strings.TrimSpace(v.InputContext)
	if source == "" {
		// Fall back to the ingested document text when the submitter gave
		// no explicit source.
		doc, getErr := w.Docs.GetByID(ctx, v.DocumentID)
		if getErr != nil {
			return w.failVersion(ctx, v, queue.KindMessage, start, fmt.Sprintf("load document: %v", getErr))
		}
		source = strings.TrimSpace(doc.NormalizedText)
	}
	if len(source) < minGenerationChars {
		return w.failVersion(ctx, v, queue.KindMessage, start,
			fmt.Sprintf("insufficient source text (%d chars, need %d)", len(source), minGenerationChars))
	}

	out, err := w.generate(ctx, llm.BuildMessagePrompt(source))
	if err != nil {
		return w.failVersion(ctx, v, queue.KindMessage, start, fmt.Sprintf("generate message: %v", err))
	}

	if err := w.completeVersion(ctx, v, out, nil, ""); err != nil {
		return w.failVersion(ctx, v, queue.KindMessage, start, fmt.Sprintf("persist result: %v", err))
	}

	metrics.IncJobCompleted(string(queue.KindMessage))
	metrics.ObserveJobDurationMs(string(queue.KindMessage), float64(w.now().Sub(start).Milliseconds()))
	telemetry.Info("short message completed",
		zap.String("documentId", v.DocumentID),
		zap.String("versionKey", v.VersionKey),
		zap.Int("length", len(out)))
	return nil
}
