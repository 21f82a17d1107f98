package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/personabot/internal/retrieval"
)

const MaxRetries = 3

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var retryErr *retrieval.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter, capped
// at 30s plus jitter.
func Backoff(attempt int) time.Duration {
	base := min(time.Duration(1<<uint(attempt))*time.Second, 30*time.Second)
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Retry calls fn up to MaxRetries times, pausing wait(attempt) between tries.
// Non-retryable errors and context cancellation end it early. onRetry, if
// set, sees each error that will be retried.
func Retry(ctx context.Context, wait func(int) time.Duration, onRetry func(attempt int, err error), fn func() error) error {
	if wait == nil {
		wait = Backoff
	}
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		timer := time.NewTimer(wait(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return err
}
