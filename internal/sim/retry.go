package sim

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const maxRetryDelay = 10 * time.Second

// withRetry runs fn until it succeeds or maxRetries retries have failed.
// The delay doubles after each attempt up to maxRetryDelay. Context errors
// returned by fn end the loop at once. onRetry sees every failure that is
// followed by another attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, onRetry func(attempt int, err error), fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case attempt > maxRetries:
			if attempt == 1 {
				return err
			}
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
