package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is a bounded exponential backoff.
type Policy struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	// InitialBackoff is the wait after the first failure. It doubles after each failure.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration
}

// DefaultPolicy is used for calls against the node and the chat platform.
var DefaultPolicy = Policy{
	Attempts:       5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
}

// OnRetry is called after a failed attempt that will be retried.
type OnRetry func(attempt int, err error, wait time.Duration)

// Do calls fn until it succeeds, the attempts are exhausted, or ctx is done.
// The last error is returned wrapped.
func Do(ctx context.Context, p Policy, onRetry OnRetry, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.InitialBackoff

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= attempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("stopped retrying: %w", ctx.Err())
		}

		backoff = backoff * 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}
