package httpclient

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelay(t *testing.T) {
	base := time.Second
	maxDelay := 30 * time.Second

	t.Run("doubles per attempt without jitter", func(t *testing.T) {
		assert.Equal(t, 1*time.Second, RetryDelay(0, base, maxDelay, 0.5))
		assert.Equal(t, 2*time.Second, RetryDelay(1, base, maxDelay, 0.5))
		assert.Equal(t, 4*time.Second, RetryDelay(2, base, maxDelay, 0.5))
		assert.Equal(t, 16*time.Second, RetryDelay(4, base, maxDelay, 0.5))
	})

	t.Run("capped at max delay", func(t *testing.T) {
		assert.Equal(t, maxDelay, RetryDelay(5, base, maxDelay, 0.5))
		assert.Equal(t, maxDelay, RetryDelay(60, base, maxDelay, 0.5))
	})

	t.Run("jitter bounds", func(t *testing.T) {
		assert.Equal(t, 750*time.Millisecond, RetryDelay(0, base, maxDelay, 0))
		assert.Equal(t, 1250*time.Millisecond, RetryDelay(0, base, maxDelay, 1))
	})

	t.Run("random jitter stays within 0.75 and 1.25 of the capped delay", func(t *testing.T) {
		for n := 0; n < 8; n++ {
			capped := min(base<<n, maxDelay)
			lower := time.Duration(float64(capped) * 0.75)
			upper := time.Duration(float64(capped) * 1.25)
			for range 200 {
				d := RetryDelay(n, base, maxDelay, rand.Float64())
				assert.GreaterOrEqual(t, d, lower)
				assert.LessOrEqual(t, d, upper)
			}
		}
	})
}

func TestSleepContext(t *testing.T) {
	t.Run("returns after delay", func(t *testing.T) {
		assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	})

	t.Run("returns early on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := sleepContext(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}
