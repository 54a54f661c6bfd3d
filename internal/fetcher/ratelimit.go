package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum interval between the starts of consecutive
// upstream calls. One instance is shared by every caller in the process.
type RateLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	lastCall time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the caller may issue the next request and records the
// call start. Calls are serialized: a second caller waits behind the first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.interval <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	reservation := r.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return errors.New("rate limiter: reservation refused")
	}
	// The single-token limiter alone decides the delay. lastCall is only
	// recorded for LastCall.
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		if err := r.sleep(ctx, delay); err != nil {
			reservation.CancelAt(now)
			return err
		}
	}
	r.lastCall = r.now()
	return nil
}

// LastCall returns the start time of the most recent permitted call.
func (r *RateLimiter) LastCall() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCall
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
