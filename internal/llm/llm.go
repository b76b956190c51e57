// Package llm abstracts the external text-generation service and the prompt
// and parsing plumbing around it. The upstream API is scarce and
// failure-prone; errors are classified so the worker's retry wrapper knows
// what is worth another attempt.
package llm

import (
	"context"
	"errors"

	"tailor-backend/internal/ratelimit"
)

// Client is one external generation endpoint.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrRateLimited is the upstream quota/429 signal. Retryable with the
	// slow backoff schedule.
	ErrRateLimited = errors.New("generation rate limited")
	// ErrTransientUnavailable covers 5xx/overload blips. Retryable with the
	// fast backoff schedule.
	ErrTransientUnavailable = errors.New("generation service unavailable")
	// ErrEmptyOutput means the call succeeded but produced nothing usable.
	ErrEmptyOutput = errors.New("generation returned empty output")
)

// GenerationError is a non-retryable upstream fault (bad request, safety
// block, anything that repeating will not fix).
type GenerationError struct {
	Msg string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generation failed: " + e.Msg
	}
	return "generation failed: " + e.Msg + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Classify maps a generation error onto a retry class. Timeouts count as
// transient: the call may have died mid-flight and is safe to reissue.
func Classify(err error) ratelimit.Class {
	switch {
	case err == nil:
		return ratelimit.ClassFatal
	case errors.Is(err, ErrRateLimited):
		return ratelimit.ClassRateLimited
	case errors.Is(err, ErrTransientUnavailable), errors.Is(err, context.DeadlineExceeded):
		return ratelimit.ClassTransient
	default:
		return ratelimit.ClassFatal
	}
}
