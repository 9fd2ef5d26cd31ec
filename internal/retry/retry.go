package retry

import (
	"context"
	"time"
)

// Policy makes retry behavior an explicit, testable parameter instead of
// module-level counters. The zero value retries nothing; use Default for the
// external-call boundary settings.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Default returns the retry budget applied around external service calls:
// 3 attempts with a fixed 61 second backoff between them.
func Default() Policy {
	return Policy{MaxAttempts: 3, Backoff: 61 * time.Second}
}

// Do runs op up to MaxAttempts times, sleeping Backoff between attempts.
// It returns nil on the first success, the last error once the budget is
// exhausted, or the context error if ctx is cancelled while waiting.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

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
		if err := sleep(ctx, p.Backoff); err != nil {
			return err
		}
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
