package usecase

import (
	"context"
	"log"
	"time"
)

// Retry runs op up to attempts times with exponential backoff (baseDelay
// doubling after each failure) and returns the last error once attempts are
// exhausted. Applied around whole reconciliation passes, not individual
// sub-calls: the existing-intent check makes a restarted pass idempotent.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, op func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := baseDelay
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

		log.Printf("⚠️ retry: attempt %d/%d failed: %v (next in %s)", attempt, attempts, lastErr, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}
