package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/utils/retry"
)

func TestExponential(t *testing.T) {
	for name, testcase := range map[string]struct {
		delay retry.Delay
		then  map[int]time.Duration
	}{
		"doubling, capped": {
			delay: retry.Exponential(time.Second, 2, 10*time.Second),
			then: map[int]time.Duration{
				1:   time.Second,
				2:   2 * time.Second,
				4:   8 * time.Second,
				5:   10 * time.Second,
				100: 10 * time.Second,
			},
		},
		"not capped": {
			delay: retry.Exponential(time.Millisecond, 3, 0),
			then: map[int]time.Duration{
				1: time.Millisecond,
				3: 9 * time.Millisecond,
			},
		},
		"constant": {
			delay: retry.Exponential(time.Second, 1, 0),
			then: map[int]time.Duration{
				1:  time.Second,
				10: time.Second,
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			for n, expected := range testcase.then {
				if actual := testcase.delay(n); actual != expected {
					t.Errorf("n = %d: unmatch: (actual, expected) = (%s, %s)", n, actual, expected)
				}
			}
		})
	}
}

func TestBlocking(t *testing.T) {
	nowait := func(context.Context) error { return nil }

	t.Run("it returns the first success", func(t *testing.T) {
		calls := 0
		actual, err := retry.Blocking(context.Background(), nowait, func() (int, error) {
			calls += 1
			if calls < 3 {
				return 0, retry.ErrRetry
			}
			return calls, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if actual != 3 {
			t.Errorf("unmatch: (actual, expected) = (%d, %d)", actual, 3)
		}
	})

	t.Run("it does not wait before the first call", func(t *testing.T) {
		waited := 0
		b := func(context.Context) error { waited += 1; return nil }
		if _, err := retry.Blocking(context.Background(), b, func() (int, error) { return 1, nil }); err != nil {
			t.Fatal(err)
		}
		if waited != 0 {
			t.Errorf("unmatch: (actual, expected) = (%d, %d)", waited, 0)
		}
	})

	t.Run("it stops at an error not to be retried", func(t *testing.T) {
		expected := errors.New("fake error")
		calls := 0
		_, err := retry.Blocking(context.Background(), nowait, func() (int, error) {
			calls += 1
			if calls == 1 {
				return 0, retry.ErrRetry
			}
			return 0, expected
		})
		if !errors.Is(err, expected) {
			t.Errorf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("unmatch: calls (actual, expected) = (%d, %d)", calls, 2)
		}
	})

	t.Run("it gives up when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := retry.Exponential(time.Hour, 1, 0).Wait()
		_, err := retry.Blocking(ctx, b, func() (int, error) { return 0, retry.ErrRetry })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if !errors.Is(err, retry.ErrRetry) {
			t.Errorf("last error is lost: %v", err)
		}
	})
}
