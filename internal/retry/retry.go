// Package retry implements the Retry Executor (C1): exponential backoff with
// rate-limit detection for any idempotent operation, grounded on the
// teacher's retryFunc in datasync/chaindatafetcher/chaindata_fetcher.go —
// generalized from a fixed DBInsertRetryInterval sleep into a doubling
// backoff capped at a configurable attempt count.
package retry

import (
	"context"
	"time"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger("retry")

const (
	DefaultBaseDelay    = time.Second
	DefaultMaxAttempts  = 3
)

// Executor retries a caller-provided idempotent function on rate-limit
// failures only; all other failures propagate immediately.
type Executor struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// New returns an Executor configured with the package defaults.
func New() *Executor {
	return &Executor{BaseDelay: DefaultBaseDelay, MaxAttempts: DefaultMaxAttempts}
}

// Do runs fn, retrying with exponential backoff (base doubling per attempt)
// only when fn's error satisfies apperr.IsRateLimited. Exhaustion surfaces as
// a RateLimited apperr. Cancellation aborts between attempts.
func Do[T any](ctx context.Context, ex *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if ex == nil {
		ex = New()
	}
	maxAttempts := ex.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	delay := ex.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apperr.IsRateLimited(err) {
			return zero, err
		}

		if attempt == maxAttempts {
			break
		}

		logger.Warnw("rate limited, backing off", "op", op, "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return zero, apperr.RateLimited("exceeded retry attempts for " + op + ": " + lastErr.Error())
}
