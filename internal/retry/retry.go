// Package retry provides the bounded retry policy applied to every
// store-mutating operation. Only conflict/transient failures are retried;
// business-rule failures are terminal and returned immediately, since
// replaying them against the same state cannot change the outcome.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/tclemens/cardtable/internal/store"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts caps total attempts, including the first.
	MaxAttempts int
	// IsRetryable classifies an error as transient. Defaults to retrying
	// store conflicts only.
	IsRetryable func(error) bool
	// Backoff returns the sleep before attempt n (1-based, so Backoff(1) is
	// the delay after the first failure). Defaults to linear 100ms steps.
	Backoff func(attempt int) time.Duration
}

// Default is the policy used by the action surface.
var Default = Policy{MaxAttempts: 5}

func (p Policy) retryable(err error) bool {
	if p.IsRetryable != nil {
		return p.IsRetryable(err)
	}
	return errors.Is(err, store.ErrConflict)
}

func (p Policy) backoff(attempt int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt)
	}
	return time.Duration(attempt) * 100 * time.Millisecond
}

// Do runs fn until it succeeds, fails terminally, or attempts are exhausted.
// The last error is returned when retries run out.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || !p.retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(p.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
