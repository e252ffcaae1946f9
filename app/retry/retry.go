package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy is a bounded retry with capped exponential backoff, applied at the
// external-call boundaries (rewrite, chat delivery, publish). Attempt n waits
// BaseDelay * 2^(n-1), capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Do runs fn until it succeeds, attempts run out, or the context is done.
// The last error is returned wrapped with the operation name.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s aborted: %w", op, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		delay := p.delay(attempt)
		slog.Warn("Operation failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay.String(),
			"error", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s aborted: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

func (p Policy) delay(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(1<<uint(attempt-1))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
