// Package reliability provides the retry/backoff primitive used by the
// price collector's HTTP client; it holds no rate limiter. The backoff
// shape is grounded on the teacher's WebSocket
// reconnect loop (exponential, capped, attempt-counted).
package reliability

import (
	"context"
	"math"
	"time"
)

// Backoff computes exponential backoff delays with a cap, in the style of
// the teacher's MarketStatusWebSocket.calculateBackoff.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// Delay returns the backoff delay for the given attempt (1-indexed).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.Base) * math.Pow(2, float64(attempt-1))
	if d > float64(b.Cap) {
		d = float64(b.Cap)
	}
	return time.Duration(d)
}

// Retry calls fn up to maxAttempts times, sleeping per Delay between
// attempts, stopping early on ctx cancellation. It returns the last error
// if every attempt failed.
func (b Backoff) Retry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(b.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
