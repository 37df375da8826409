package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSleep(slept *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestRetrier_Do_SucceedsFirstAttempt(t *testing.T) {
	var slept []time.Duration
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}).WithSleep(fakeSleep(&slept))

	calls := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)
}

func TestRetrier_Do_RetriesTransientErrors(t *testing.T) {
	var slept []time.Duration
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}).WithSleep(fakeSleep(&slept))

	calls := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 4 {
			return procurement.NewTransientError("fetch_po", errors.New("timeout"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	// Exponential backoff: 1s, 2s, 4s
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, slept)
}

func TestRetrier_Do_ExhaustsAttempts(t *testing.T) {
	var slept []time.Duration
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}).WithSleep(fakeSleep(&slept))

	transient := procurement.NewTransientError("fetch_po", errors.New("timeout"))
	calls := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return transient
	})

	assert.ErrorIs(t, err, transient.Err)
	assert.Equal(t, 3, calls)
	assert.Len(t, slept, 2)
}

func TestRetrier_Do_PermanentErrorNotRetried(t *testing.T) {
	var slept []time.Duration
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}).WithSleep(fakeSleep(&slept))

	permanent := procurement.NewPermanentError("post_invoice", errors.New("posting rejected"))
	calls := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)
}

func TestRetrier_Do_MaxElapsedStopsRetrying(t *testing.T) {
	var slept []time.Duration
	retrier := NewRetrier(RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxElapsed:  30 * time.Second,
	}).WithSleep(fakeSleep(&slept))

	// Advance the fake clock past the elapsed budget after two attempts
	now := time.Now()
	attempts := 0
	retrier.now = func() time.Time {
		if attempts >= 2 {
			return now.Add(time.Minute)
		}
		return now
	}

	transient := procurement.NewTransientError("fetch_po", errors.New("timeout"))
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return transient
	})

	require.Error(t, err)
	assert.True(t, procurement.IsTransient(err))
	assert.Equal(t, 2, attempts)
}

func TestRetrier_Do_CancelledContextStopsRetrying(t *testing.T) {
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transient := procurement.NewTransientError("fetch_po", errors.New("timeout"))
	calls := 0
	err := retrier.Do(ctx, func(ctx context.Context) error {
		calls++
		return transient
	})

	assert.True(t, procurement.IsTransient(err))
	assert.Equal(t, 1, calls)
}

func TestRetrier_Delay_CappedAtMaxDelay(t *testing.T) {
	retrier := NewRetrier(RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
	})

	assert.Equal(t, time.Second, retrier.delay(1))
	assert.Equal(t, 2*time.Second, retrier.delay(2))
	assert.Equal(t, 4*time.Second, retrier.delay(3))
	assert.Equal(t, 5*time.Second, retrier.delay(4))
	assert.Equal(t, 5*time.Second, retrier.delay(8))
}

func TestRetrier_Delay_JitterStaysWithinBounds(t *testing.T) {
	retrier := NewRetrier(RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Jitter:      0.2,
	})

	for i := 0; i < 100; i++ {
		d := retrier.delay(1)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}
