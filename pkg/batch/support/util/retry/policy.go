// Package retry decides whether a failed operation is attempted again and how long to wait before.
//
// Chunk and tasklet steps never retry: a failing chunk aborts its step. Retries are used around
// side effects that must not fail a job, such as publishing a completion event.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// Policy decides whether and when an operation is retried.
type Policy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// Backoff returns the wait before the attempt following attempt (starting from 1).
	Backoff(attempt int) time.Duration
	// MaxAttempts returns the maximum number of attempts, the first one included.
	MaxAttempts() int
}

// defaultPolicy retries errors flagged retryable, or matching one of retryableTypes, with an
// exponential backoff starting at initialInterval.
type defaultPolicy struct {
	maxAttempts     int
	initialInterval time.Duration
	retryableTypes  []string
}

// NewPolicy creates a Policy. maxAttempts below 1 means a single attempt.
// retryableTypes are error type names understood by exception.IsErrorOfType.
func NewPolicy(maxAttempts int, initialInterval time.Duration, retryableTypes ...string) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultPolicy{
		maxAttempts:     maxAttempts,
		initialInterval: initialInterval,
		retryableTypes:  retryableTypes,
	}
}

func (p *defaultPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry is true for a BatchError flagged retryable, or an error of a configured type.
func (p *defaultPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var be *exception.BatchError
	if errors.As(err, &be) && be.IsRetryable() {
		return true
	}
	for _, typeName := range p.retryableTypes {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// Backoff doubles the initial interval after every attempt.
func (p *defaultPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.initialInterval << (attempt - 1)
}

// Do runs op until it succeeds, fails with an error the policy does not retry, runs out of
// attempts, or ctx is done. It returns the last error.
func Do(ctx context.Context, policy Policy, name string, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= policy.MaxAttempts() || !policy.ShouldRetry(err) {
			return err
		}
		wait := policy.Backoff(attempt)
		logger.Warnf("%s: Attempt %d/%d failed, retrying in %s: %v", name, attempt, policy.MaxAttempts(), wait, err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
}

var _ Policy = (*defaultPolicy)(nil)
