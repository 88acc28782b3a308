package engine

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Retry policy bounds. MaxAttempts is a hard ceiling and the backoff
// multiplier must be exactly 2.0; any deviation is a configuration error
// caught at startup, not a runtime condition.
const (
	maxRetryAttempts          = 3
	requiredBackoffMultiplier = 2.0
)

// RetryPolicy describes the retry behavior for one operation class.
// The original call does not count as a retry: a policy with MaxAttempts
// of 3 allows up to four calls in total, with exponentially growing
// delays between them.
type RetryPolicy struct {
	InitialDelay      time.Duration
	MaxAttempts       int
	BackoffMultiplier float64
}

// RetryPolicies groups the three named policies by operation class.
type RetryPolicies struct {
	// Generator covers external generator calls.
	Generator RetryPolicy

	// Persistence covers processing state writes.
	Persistence RetryPolicy

	// Retrieval covers upstream work item reads.
	Retrieval RetryPolicy
}

// DefaultRetryPolicies returns the standard policies: generator and
// retrieval back off 2s, 4s, 8s; persistence backs off 1s, 2s, 4s.
func DefaultRetryPolicies() RetryPolicies {
	return RetryPolicies{
		Generator: RetryPolicy{
			InitialDelay:      2 * time.Second,
			MaxAttempts:       maxRetryAttempts,
			BackoffMultiplier: requiredBackoffMultiplier,
		},
		Persistence: RetryPolicy{
			InitialDelay:      1 * time.Second,
			MaxAttempts:       maxRetryAttempts,
			BackoffMultiplier: requiredBackoffMultiplier,
		},
		Retrieval: RetryPolicy{
			InitialDelay:      2 * time.Second,
			MaxAttempts:       maxRetryAttempts,
			BackoffMultiplier: requiredBackoffMultiplier,
		},
	}
}

// Validate checks the policy against the hard bounds.
func (p RetryPolicy) Validate() error {
	if p.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive, got %s", p.InitialDelay)
	}

	if p.MaxAttempts < 1 || p.MaxAttempts > maxRetryAttempts {
		return fmt.Errorf("max attempts must be between 1 and %d, got %d",
			maxRetryAttempts, p.MaxAttempts)
	}

	if p.BackoffMultiplier != requiredBackoffMultiplier {
		return fmt.Errorf("backoff multiplier must be exactly %.1f, got %g",
			requiredBackoffMultiplier, p.BackoffMultiplier)
	}

	return nil
}

// Validate checks every policy in the group.
func (ps RetryPolicies) Validate() error {
	if err := ps.Generator.Validate(); err != nil {
		return fmt.Errorf("generator retry policy: %w", err)
	}

	if err := ps.Persistence.Validate(); err != nil {
		return fmt.Errorf("persistence retry policy: %w", err)
	}

	if err := ps.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval retry policy: %w", err)
	}

	return nil
}

// Delay returns the backoff delay before retry number retry (1-indexed):
// InitialDelay * multiplier^(retry-1).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}

	factor := math.Pow(p.BackoffMultiplier, float64(retry-1))
	return time.Duration(float64(p.InitialDelay) * factor)
}

// Do runs op, retrying transient failures with exponential backoff until
// the retry budget is exhausted or the context ends. Validation and
// permanent failures return immediately regardless of remaining budget.
// onRetry, when non-nil, is invoked before each retry with the 1-indexed
// retry number and the error that triggered it.
func (p RetryPolicy) Do(
	ctx context.Context,
	op func(ctx context.Context) error,
	onRetry func(retry int, err error),
) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if onRetry != nil {
				onRetry(attempt, lastErr)
			}

			select {
			case <-time.After(p.Delay(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !Classify(err).Retryable() {
			return err
		}

		if ctx.Err() != nil {
			return err
		}
	}

	return fmt.Errorf("exhausted %d retries: %w", p.MaxAttempts, lastErr)
}
