// Package loop runs a task over and over, carrying a value between cycles.
//
// Workers of the refresh queue and the lease housekeeping are loops.
package loop

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Next tells Start what to do after a cycle.
//
// The zero value is Continue(0).
type Next struct {
	err      error
	quit     bool
	interval time.Duration
}

func (n Next) String() string {
	switch {
	case n.err != nil:
		return fmt.Sprintf("[break] with error: %v", n.err)
	case n.quit:
		return "[break] without error"
	default:
		return fmt.Sprintf("[continue] interval: %s", n.interval)
	}
}

// Continue runs the next cycle after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break stops the loop. err is returned from Start.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is a cycle of a loop.
//
// It receives the value the last cycle returned, and returns the value for
// the next cycle.
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task until it breaks or ctx is done.
//
// The first cycle receives init. For example, counting refreshed frames
// until the queue is drained:
//
//	done, err := Start(ctx, 0, func(ctx context.Context, done int) (int, Next) {
//		item, ok, err := queue.Pop(ctx, worker)
//		if err != nil {
//			return done, Break(err)
//		}
//		if !ok {
//			return done, Break(nil)
//		}
//		...
//		return done + 1, Continue(0)
//	})
//
// # Returns
//
// - T: the value the last cycle returned. It is returned even with error.
//
// - error: error passed to Break, or ctx.Err() when ctx is done.
func Start[T any](ctx context.Context, init T, task Task[T], options ...LoopOption) (T, error) {
	if err := ctx.Err(); err != nil {
		return init, err
	}

	value := init
	for {
		v, next := cycle(ctx, value, task, options)
		value = v
		if next.quit || next.err != nil {
			return value, next.err
		}

		timer := time.NewTimer(next.interval)
		select {
		case <-ctx.Done():
			// done context wins over an expired timer.
			timer.Stop()
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}

func cycle[T any](ctx context.Context, value T, task Task[T], options []LoopOption) (T, Next) {
	lc := &loopConfig{ctx: ctx, release: func() {}}
	for _, opt := range options {
		lc = opt(lc)
	}
	defer lc.release()
	return task(lc.ctx, value)
}

type loopConfig struct {
	ctx     context.Context
	release func()
}

// LoopOption modifies each cycle.
type LoopOption func(*loopConfig) *loopConfig

// WithTimeout limits the time of each cycle.
func WithTimeout(d time.Duration) LoopOption {
	return func(lc *loopConfig) *loopConfig {
		ctx, cancel := context.WithTimeout(lc.ctx, d)
		release := lc.release
		return &loopConfig{
			ctx: ctx,
			release: func() {
				cancel()
				release()
			},
		}
	}
}

// Monitor logs each cycle of task with its duration and the decision.
func Monitor[T any](logger *log.Logger, task Task[T]) Task[T] {
	var count uint64
	return func(ctx context.Context, t T) (T, Next) {
		count += 1
		begin := time.Now()
		ret, next := task(ctx, t)
		logger.Printf("cycle #%d (took %s): %s / %v", count, time.Since(begin), next, ret)
		return ret, next
	}
}
