// Package retry executes operations with bounded exponential backoff and
// optional jitter. A retry predicate decides which failures are worth
// another attempt; by default transient failures are retried and
// permanent or fail-fast errors are surfaced immediately.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/AnalineS/tiercache/lib/cache"
)

// Policy configures retry behavior. The zero value is not usable; start
// from DefaultPolicy.
type Policy struct {
	// MaxAttempts is the total number of tries including the first one.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// Jitter randomizes each delay into [delay/2, delay) to avoid
	// synchronized retry storms across clients.
	Jitter bool
	// RetryIf gates whether a failure is retryable. Nil means
	// cache.IsRetryable.
	RetryIf func(error) bool
}

// DefaultPolicy mirrors the client transport defaults: three attempts,
// 50ms base delay doubling up to 5s, jittered.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Second,
		Jitter:      true,
	}
}

// Execute runs op up to MaxAttempts times. The last error is surfaced
// unchanged when attempts are exhausted or the predicate rejects a
// failure; retries never swallow a terminal error. Context cancellation
// aborts the wait between attempts.
func (p Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = cache.IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.delayFor(attempt)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !retryIf(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// delayFor computes the backoff before the given attempt (attempt >= 2):
// min(BaseDelay x Multiplier^(attempt-1), MaxDelay), optionally jittered.
func (p Policy) delayFor(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
			break
		}
	}

	if p.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(delay)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
