package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterConcurrencyCap(t *testing.T) {
	limiter := New(Config{MaxConcurrency: 2})

	var inFlight, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Do(context.Background(), func(ctx context.Context) error {
				cur := atomic.AddInt64(&inFlight, 1)
				for {
					old := atomic.LoadInt64(&peak)
					if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2), "in-flight calls exceeded concurrency cap")
}

func TestLimiterReservoirPerWindow(t *testing.T) {
	limiter := New(Config{
		MaxConcurrency: 10,
		ReservoirSize:  3,
		RefillInterval: 400 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = limiter.Do(ctx, func(ctx context.Context) error {
				atomic.AddInt64(&started, 1)
				return nil
			})
		}()
	}

	// Well inside the first window only the reservoir should have run.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(3), atomic.LoadInt64(&started), "first window admitted more than the reservoir")

	// The next window admits another reservoir's worth.
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int64(6), atomic.LoadInt64(&started), "second window admitted more than the reservoir")

	cancel()
	wg.Wait()
}

func TestLimiterMinSpacing(t *testing.T) {
	limiter := New(Config{MaxConcurrency: 5, MinSpacing: 50 * time.Millisecond})

	var mu sync.Mutex
	var starts []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Do(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 4)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, 45*time.Millisecond, "call starts closer than minimum spacing")
	}
}

func TestLimiterDoHonorsContext(t *testing.T) {
	limiter := New(Config{MaxConcurrency: 1})

	release := make(chan struct{})
	go func() {
		_ = limiter.Do(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
	}()

	// Give the first call time to take the slot.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := limiter.Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:   attempts,
		RateLimitBase: time.Millisecond,
		TransientBase: time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	}
}

func TestRetryRateLimitedThenSuccess(t *testing.T) {
	rateLimited := errors.New("rate limited")
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func(error) Class { return ClassRateLimited },
		func(ctx context.Context) error {
			calls++
			if calls <= 2 {
				return rateLimited
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "expected exactly 3 attempts")
}

func TestRetryFatalErrorNoRetry(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func(error) Class { return ClassFatal },
		func(ctx context.Context) error {
			calls++
			return fatal
		})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "fatal errors must not be retried")
}

func TestRetryExhaustionNamesAttempts(t *testing.T) {
	transient := errors.New("unavailable")
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func(error) Class { return ClassTransient },
		func(ctx context.Context) error {
			calls++
			return transient
		})

	var attemptsErr *AttemptsError
	require.ErrorAs(t, err, &attemptsErr)
	assert.Equal(t, 3, attemptsErr.Attempts)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, transient)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, fastPolicy(10), func(error) Class { return ClassTransient },
		func(c context.Context) error {
			calls++
			cancel()
			return errors.New("boom")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
