// Package worker runs the consumer side of the pipeline: the ingestion
// processor (fetch, extract, score, persist) and the two generation
// processors (tailored rewrite, short outreach message). Every job ends in a
// terminal persisted state; handlers never let domain failures escape as
// handler errors once a terminal write has landed.
package worker

import (
	"context"
	"fmt"
	"time"

	"tailor-backend/internal/documents"
	"tailor-backend/internal/extract"
	"tailor-backend/internal/llm"
	"tailor-backend/internal/queue"
	"tailor-backend/internal/ratelimit"
	"tailor-backend/internal/shared/storage/object"
	"tailor-backend/internal/versions"
)

// minGenerationChars is the smallest normalized-text length worth sending to
// the generation endpoint. Below it customization fails fast without a call.
const minGenerationChars = 50

// failedWriteAttempts bounds retries of the terminal failure write itself.
const failedWriteAttempts = 3

// Worker holds the processors' shared dependencies.
type Worker struct {
	Docs    documents.Repo
	Vers    versions.Repo
	Store   object.ObjectStore
	Chain   *extract.Chain
	LLM     llm.Client
	Limiter *ratelimit.Limiter
	Retry   ratelimit.Policy

	// CallTimeout bounds a single generation call.
	CallTimeout time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Worker. limiter serializes and meters generation calls across
// both generation kinds; it must be the same instance the deployment shares.
func New(docs documents.Repo, vers versions.Repo, store object.ObjectStore, chain *extract.Chain, client llm.Client, limiter *ratelimit.Limiter, retry ratelimit.Policy, callTimeout time.Duration) *Worker {
	return &Worker{
		Docs:        docs,
		Vers:        vers,
		Store:       store,
		Chain:       chain,
		LLM:         client,
		Limiter:     limiter,
		Retry:       retry,
		CallTimeout: callTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		sleep:       sleepCtx,
	}
}

// Register binds the processors to their kinds. Ingestion gets a small pool;
// the generation kinds are serialized through single-worker pools on top of
// the limiter's own concurrency gate.
func (w *Worker) Register(d *queue.Dispatcher, ingestConcurrency int) error {
	if ingestConcurrency <= 1 {
		ingestConcurrency = 2
	}
	if err := d.Register(queue.KindIngest, ingestConcurrency, w.HandleIngest); err != nil {
		return fmt.Errorf("register ingest: %w", err)
	}
	if err := d.Register(queue.KindCustomization, 1, w.HandleCustomization); err != nil {
		return fmt.Errorf("register customization: %w", err)
	}
	if err := d.Register(queue.KindMessage, 1, w.HandleMessage); err != nil {
		return fmt.Errorf("register message: %w", err)
	}
	return nil
}

// generate runs one metered generation call under the retry policy. The
// limiter admits the call, the timeout bounds it, Classify decides whether a
// failure earns another attempt.
func (w *Worker) generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := ratelimit.Retry(ctx, w.Retry, llm.Classify, func(ctx context.Context) error {
		return w.Limiter.Do(ctx, func(ctx context.Context) error {
			callCtx := ctx
			if w.CallTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, w.CallTimeout)
				defer cancel()
			}
			text, err := w.LLM.Generate(callCtx, prompt)
			if err != nil {
				return err
			}
			out = text
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
