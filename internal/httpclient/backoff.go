package httpclient

import (
	"context"
	"time"
)

// RetryDelay returns the backoff before retry attempt n (zero-based):
// min(base*2^n, maxDelay) scaled by a jitter factor in [0.75, 1.25) drawn from r,
// where r is uniform in [0, 1).
func RetryDelay(n int, base, maxDelay time.Duration, r float64) time.Duration {
	delay := base
	for i := 0; i < n && delay < maxDelay; i++ {
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return time.Duration(float64(delay) * (0.75 + 0.5*r))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
