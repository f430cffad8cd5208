package fetch

import (
	"context"
	"time"
)

// RetryPolicy bounds the retry loop for transient failures. GET is
// idempotent, so replaying the same page request verbatim is safe.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// InitBackoff is the wait before the first retry; each subsequent
	// wait doubles up to MaxBackoff.
	InitBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy is the retry configuration used when none is given.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:  3,
	InitBackoff: 250 * time.Millisecond,
	MaxBackoff:  5 * time.Second,
}

// backoff returns the wait before retry attempt n (1-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// wait sleeps the backoff for the given attempt, honoring cancellation.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.backoff(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
