package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Class buckets an attempt error for retry purposes.
type Class int

const (
	// ClassFatal errors are surfaced immediately without another attempt.
	ClassFatal Class = iota
	// ClassRateLimited errors back off on the slow schedule.
	ClassRateLimited
	// ClassTransient errors back off on the fast schedule.
	ClassTransient
)

// Classifier maps an error to a retry class.
type Classifier func(error) Class

// Policy controls the exponential backoff schedule.
type Policy struct {
	// MaxAttempts is the total attempt budget, first call included.
	MaxAttempts int
	// RateLimitBase seeds the backoff after a rate-limit signal.
	RateLimitBase time.Duration
	// TransientBase seeds the backoff after a transient-unavailable signal.
	TransientBase time.Duration
	// MaxDelay caps any single backoff wait.
	MaxDelay time.Duration
	// JitterFraction randomizes each wait by up to this fraction of it.
	JitterFraction float64
}

// DefaultPolicy matches the generation endpoint's observed failure modes:
// long waits after explicit rate limiting, short ones after blips.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		RateLimitBase:  5 * time.Second,
		TransientBase:  time.Second,
		MaxDelay:       time.Minute,
		JitterFraction: 0.2,
	}
}

// AttemptsError reports that the retry budget was exhausted.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error { return e.Err }

// Retry runs fn until it succeeds, fails fatally, or the attempt budget runs
// out. The wait before attempt n is min(MaxDelay, base * 2^(n-1)) plus
// jitter, with base chosen by the error class. Callers compose this with a
// Limiter by acquiring admission inside fn, so retries queue like any other
// call.
func Retry(ctx context.Context, p Policy, classify Classifier, fn func(context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		class := ClassFatal
		if classify != nil {
			class = classify(lastErr)
		}
		if class == ClassFatal {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		if err := sleepCtx(ctx, p.delay(class, attempt)); err != nil {
			return err
		}
	}
	return &AttemptsError{Attempts: p.MaxAttempts, Err: lastErr}
}

func (p Policy) delay(class Class, attempt int) time.Duration {
	base := p.TransientBase
	if class == ClassRateLimited {
		base = p.RateLimitBase
	}
	if base <= 0 {
		base = time.Second
	}

	d := base << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.JitterFraction > 0 {
		jitter := time.Duration(float64(d) * p.JitterFraction * rand.Float64())
		d += jitter
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	return d
}
