package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = retryConfig{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 4 * time.Millisecond}

func TestRetryOp(t *testing.T) {
	ctx := context.Background()

	t.Run("transient errors are retried", func(t *testing.T) {
		calls := 0
		err := retryOp(ctx, fastRetry, func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors return at once", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := retryOp(ctx, fastRetry, func() error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := retryOp(ctx, fastRetry, func() error {
			calls++
			return errors.New("database table is locked")
		})
		require.Error(t, err)
		assert.Equal(t, fastRetry.maxRetries+1, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := retryOp(cctx, fastRetry, func() error {
			return errors.New("database is locked")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoffDelay(t *testing.T) {
	cfg := retryConfig{maxRetries: 5, baseDelay: 10 * time.Millisecond, maxDelay: 40 * time.Millisecond}
	for attempt, floor := range []time.Duration{10, 20, 40, 40} {
		d := backoffDelay(cfg, attempt)
		assert.GreaterOrEqual(t, d, floor*time.Millisecond)
		assert.Less(t, d, floor*time.Millisecond+cfg.baseDelay)
	}
}
