// internal/navigator/retry.go
package navigator

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy runs an operation up to Attempts times. Between attempts it
// invokes the Cleanup hook (the overlay guard, in production) and sleeps
// Delay, optionally growing it by Backoff each round. The hook is a policy
// slot so the recovery strategy can change without touching the retry
// arithmetic.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Backoff multiplies the delay after each failed attempt. Values at or
	// below 1 keep the delay fixed, which is the baseline policy.
	Backoff float64
	// Cleanup runs before every re-attempt. May be nil.
	Cleanup func(ctx context.Context)
}

// Do executes op, retrying on failure until the attempt budget is spent. The
// error escaping here is the last failure; this is the only point where a
// transient fault becomes fatal to the calling step.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		if p.Cleanup != nil {
			p.Cleanup(ctx)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if p.Backoff > 1 {
			delay = time.Duration(float64(delay) * p.Backoff)
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}
