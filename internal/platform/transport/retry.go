package transport

import (
	"context"
	"time"
)

// RetryPolicy is a bounded, fixed-delay retry loop. MaxRetries counts retries,
// so a call runs at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	// Retryable decides whether a failed attempt may be retried. Nil means
	// RetryServerErrors.
	Retryable func(err error) bool
	// Sleep waits between attempts. Nil means SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RetryServerErrors retries 5xx responses only. Client errors, validation
// failures and errors without a status are final.
func RetryServerErrors(err error) bool {
	return IsServerError(err)
}

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = RetryServerErrors
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(lastErr) {
			return lastErr
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return lastErr
}
