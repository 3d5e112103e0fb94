// Package retry repeats attempts with waits in between.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrRetry tells Blocking that the attempt should be made again.
var ErrRetry = errors.New("retry")

// Backoff waits before the next attempt.
//
// It returns ctx.Err() when ctx is done while waiting.
type Backoff func(context.Context) error

// Delay is the wait before the n-th retry, for n >= 1.
type Delay func(n int) time.Duration

// Exponential waits initial * r^(n-1) before the n-th retry.
//
// Delays are capped by max. Non-positive max means no cap.
func Exponential(initial time.Duration, r float64, max time.Duration) Delay {
	capped := func(d float64) (time.Duration, bool) {
		if 0 < max && float64(max) <= d {
			return max, true
		}
		return time.Duration(d), false
	}
	return func(n int) time.Duration {
		d := float64(initial)
		for i := 1; i < n; i++ {
			d *= r
			if c, ok := capped(d); ok {
				return c
			}
		}
		c, _ := capped(d)
		return c
	}
}

// Wait makes a Backoff waiting d(1), d(2), ... for each call.
//
// The Backoff is not safe for concurrent use.
func (d Delay) Wait() Backoff {
	n := 0
	return func(ctx context.Context) error {
		n += 1
		timer := time.NewTimer(d(n))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// Blocking calls f until it returns nil or an error other than ErrRetry.
//
// The first call is made at once. b is waited before each of the following.
//
// # Returns
//
// - T: what the last call of f returned
//
// - error: error of the last call of f, or of b
func Blocking[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	last, err := f()
	for errors.Is(err, ErrRetry) {
		if berr := b(ctx); berr != nil {
			return last, errors.Join(berr, err)
		}
		last, err = f()
	}
	return last, err
}
