package segment

import (
	"context"
	"time"
)

// DefaultMaxAttempts bounds fetch attempts per segment.
const DefaultMaxAttempts = 5

// RetryPolicy controls how often a segment fetch is attempted and how long to
// wait between attempts.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the delay before the given retry (1-based). Nil means
	// retry immediately.
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy retries up to DefaultMaxAttempts with no delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts}
}

// ConstantBackoff waits the same delay before every retry.
func ConstantBackoff(delay time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return delay }
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	if p.Backoff == nil {
		return ctx.Err()
	}
	delay := p.Backoff(attempt)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
