package procurement

import (
	"context"
	"math/rand"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
)

// RetryPolicy bounds retries of transient ledger failures.
// MaxElapsed caps the total time a workflow may spend waiting between
// attempts, which bounds how long the processing lock is held.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxElapsed  time.Duration
	Jitter      float64 // fraction of the delay randomized, 0..1
}

// DefaultRetryPolicy mirrors the backoff ladder used for outbound delivery:
// 5 attempts at 1s, 2s, 4s, 8s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		MaxElapsed:  2 * time.Minute,
		Jitter:      0.2,
	}
}

// SleepFunc suspends the caller for d or until the context is done.
// Injectable so tests can retry without waiting.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier executes operations under a RetryPolicy
type Retrier struct {
	policy RetryPolicy
	sleep  SleepFunc
	now    func() time.Time
}

// NewRetrier creates a Retrier with the given policy
func NewRetrier(policy RetryPolicy) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Retrier{
		policy: policy,
		sleep:  sleepWithContext,
		now:    time.Now,
	}
}

// WithSleep replaces the sleep function; used by tests for a fake clock
func (r *Retrier) WithSleep(sleep SleepFunc) *Retrier {
	r.sleep = sleep
	return r
}

// Do runs fn, retrying with exponential backoff while it fails with a
// transient gateway error. Permanent errors and exhausted budgets return
// the last error unchanged.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	start := r.now()
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !procurement.IsTransient(err) {
			return err
		}
		if attempt >= r.policy.MaxAttempts {
			return err
		}
		if r.policy.MaxElapsed > 0 && r.now().Sub(start) >= r.policy.MaxElapsed {
			return err
		}
		if sleepErr := r.sleep(ctx, r.delay(attempt)); sleepErr != nil {
			return err
		}
	}
}

// delay computes the backoff before the next attempt: BaseDelay doubled per
// attempt, capped at MaxDelay, with symmetric jitter applied
func (r *Retrier) delay(attempt int) time.Duration {
	d := r.policy.BaseDelay * time.Duration(1<<uint(attempt-1))
	if r.policy.MaxDelay > 0 && d > r.policy.MaxDelay {
		d = r.policy.MaxDelay
	}
	if r.policy.Jitter > 0 {
		spread := r.policy.Jitter * (2*rand.Float64() - 1)
		d = time.Duration(float64(d) * (1 + spread))
	}
	if d < 0 {
		d = 0
	}
	return d
}
