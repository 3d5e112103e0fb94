package loop_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/loop"
	"github.com/fitsarchive/calassoc/pkg/utils/try"
)

func TestStart(t *testing.T) {
	t.Run("it repeats task until it breaks", func(t *testing.T) {
		for name, testcase := range map[string]struct {
			breakWith error
		}{
			"without error": {breakWith: nil},
			"with error":    {breakWith: errors.New("fake error")},
		} {
			t.Run(name, func(t *testing.T) {
				actual, err := loop.Start(context.Background(), 1, func(ctx context.Context, v int) (int, loop.Next) {
					if 10 <= v+1 {
						return v + 1, loop.Break(testcase.breakWith)
					}
					return v + 1, loop.Continue(0)
				})
				if !errors.Is(err, testcase.breakWith) {
					t.Errorf("unexpected error: %v", err)
				}
				if actual != 10 {
					t.Errorf("unmatch: (actual, expected) = (%d, %d)", actual, 10)
				}
			})
		}
	})

	t.Run("it stops when context is done while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		begin := time.Now()
		actual, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			cancel()
			return v + 1, loop.Continue(time.Hour)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if actual != 1 {
			t.Errorf("unmatch: (actual, expected) = (%d, %d)", actual, 1)
		}
		if time.Minute <= time.Since(begin) {
			t.Errorf("it waits the interval after cancel")
		}
	})

	t.Run("when context has been done before starting, it does nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		actual, err := loop.Start(ctx, 1, func(ctx context.Context, v int) (int, loop.Next) {
			called = true
			return v + 1, loop.Continue(0)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if called || actual != 1 {
			t.Errorf("loop does not honour context")
		}
	})

	t.Run("WithTimeout sets deadline on each cycle", func(t *testing.T) {
		timeout := 100 * time.Millisecond
		var deadlines []time.Time
		try.To(loop.Start(
			context.Background(), 0, func(ctx context.Context, v int) (int, loop.Next) {
				deadline, ok := ctx.Deadline()
				if !ok {
					t.Fatal("deadline is not set")
				}
				if timeout < time.Until(deadline) {
					t.Errorf("deadline is too far: %s", deadline)
				}
				deadlines = append(deadlines, deadline)
				if v == 2 {
					return v + 1, loop.Break(nil)
				}
				return v + 1, loop.Continue(10 * time.Millisecond)
			},
			loop.WithTimeout(timeout),
		)).OrFatal(t)

		for i := 1; i < len(deadlines); i++ {
			if !deadlines[i-1].Before(deadlines[i]) {
				t.Errorf("deadline is not renewed: %v", deadlines)
			}
		}
	})

	t.Run("context of a cycle is canceled after the cycle", func(t *testing.T) {
		var last context.Context
		try.To(loop.Start(
			context.Background(), 0, func(ctx context.Context, v int) (int, loop.Next) {
				last = ctx
				return v, loop.Break(nil)
			},
			loop.WithTimeout(time.Hour),
		)).OrFatal(t)

		if last.Err() == nil {
			t.Error("context of the cycle is left alive")
		}
	})

	t.Run("without options, task gets deadline-free context", func(t *testing.T) {
		try.To(loop.Start(
			context.Background(), 0, func(ctx context.Context, v int) (int, loop.Next) {
				if deadline, ok := ctx.Deadline(); ok {
					t.Errorf("deadline is set: %s", deadline)
				}
				return v, loop.Break(nil)
			},
		)).OrFatal(t)
	})
}

func TestMonitor(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := log.New(buf, "[test] ", 0)

	task := loop.Monitor(logger, func(ctx context.Context, v int) (int, loop.Next) {
		if v == 1 {
			return v + 1, loop.Break(nil)
		}
		return v + 1, loop.Continue(0)
	})
	try.To(loop.Start(context.Background(), 0, task)).OrFatal(t)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected log: %s", buf.String())
	}
	for i, expected := range []string{"cycle #1", "cycle #2"} {
		if !strings.HasPrefix(lines[i], "[test] "+expected) {
			t.Errorf("unexpected log line: %s", lines[i])
		}
	}
	if !strings.Contains(lines[0], "[continue]") || !strings.Contains(lines[1], "[break] without error") {
		t.Errorf("decisions are not logged: %s", buf.String())
	}
}
