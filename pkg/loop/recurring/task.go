package recurring

import (
	"context"

	"github.com/fitsarchive/calassoc/pkg/loop"
)

// Task runs one cycle of a recurring loop.
//
// It returns the next state, whether the cycle did any work (so more may be
// waiting), and an error, if any.
type Task[T any] func(ctx context.Context, state T) (next T, worked bool, err error)

// Applied turns the task into a loop.Task whose decision is made by p.
func (task Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, state T) (T, loop.Next) {
		next, worked, err := task(ctx, state)
		return next, p.Next(worked, err)
	}
}
