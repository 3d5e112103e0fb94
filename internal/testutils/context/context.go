package context

import (
	"context"
	"testing"
	"time"
)

// WithTest bounds ctx by the deadline of t, if any.
//
// The bound is a second before, so that tests can clean up tables after
// their context is done.
func WithTest(ctx context.Context, t *testing.T) (context.Context, func()) {
	if deadline, ok := t.Deadline(); ok {
		return context.WithDeadline(ctx, deadline.Add(-time.Second))
	}
	return ctx, func() {}
}
