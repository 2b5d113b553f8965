package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls the retry loop. Retryable decides whether a failure is
// transient; a nil Retryable treats every error as transient.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// Do runs fn until it succeeds, fails permanently, or exhausts MaxAttempts.
// The delay doubles per attempt, capped at MaxDelay.
func Do(ctx context.Context, config Config, fn func() error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	delay := config.Delay
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if config.Retryable != nil && !config.Retryable(err) {
				return err
			}
			if attempt == config.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay *= 2
			if config.MaxDelay > 0 && delay > config.MaxDelay {
				delay = config.MaxDelay
			}
			continue
		}
		return nil
	}

	return lastErr
}
