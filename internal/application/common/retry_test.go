package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("database is locked")

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func newTestPolicy(maxAttempts int) (*RetryPolicy, *[]time.Duration) {
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts:     maxAttempts,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		Multiplier:      2,
		Jitter:          0.5,
	}, isBusy)
	var delays []time.Duration
	p.Sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return p, &delays
}

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	p, delays := newTestPolicy(5)

	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	require.Len(t, *delays, 2)
	for _, d := range *delays {
		assert.GreaterOrEqual(t, d, 25*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetryPolicy_StopsOnNonTransientError(t *testing.T) {
	p, delays := newTestPolicy(5)
	boom := errors.New("constraint failed")

	attempts, err := p.Do(context.Background(), func(context.Context) error { return boom })

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, *delays)
}

func TestRetryPolicy_ExhaustionSurfacesStoreContention(t *testing.T) {
	p, delays := newTestPolicy(4)

	var retried []int
	p.OnRetry = func(_ context.Context, attempt int, _ time.Duration, _ error) {
		retried = append(retried, attempt)
	}
	exhausted := 0
	p.OnExhausted = func(context.Context, int, error) { exhausted++ }

	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	})

	assert.Equal(t, 4, attempts)
	assert.Equal(t, 4, calls)
	assert.Len(t, *delays, 3, "no wait after the final attempt")
	assert.Equal(t, []int{1, 2, 3}, retried)
	assert.Equal(t, 1, exhausted)
	assert.True(t, errors.Is(err, shared.ErrStoreContention))
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, shared.KindTransient, shared.KindOf(err))
}

func TestRetryPolicy_ContextCancelledDuringWait(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{MaxAttempts: 5, InitialInterval: time.Hour, MaxInterval: time.Hour}, isBusy)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := p.Do(ctx, func(context.Context) error { return errBusy })

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, shared.ErrStoreContention))
}

func TestNewRetryPolicy_Defaults(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{}, nil)
	def := DefaultRetryConfig()
	assert.Equal(t, def.MaxAttempts, p.Config().MaxAttempts)
	assert.Equal(t, def.InitialInterval, p.Config().InitialInterval)
	assert.Equal(t, def.MaxInterval, p.Config().MaxInterval)
	assert.Equal(t, def.Multiplier, p.Config().Multiplier)

	attempts, err := p.Do(context.Background(), func(context.Context) error { return errBusy })
	assert.Equal(t, 1, attempts, "nothing is transient without a classifier")
	assert.ErrorIs(t, err, errBusy)
}
