package refresh_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/cmd/calworker/tasks/refresh"
	mockassoc "github.com/fitsarchive/calassoc/pkg/association/mock"
	"github.com/fitsarchive/calassoc/pkg/domain"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/fitsarchive/calassoc/pkg/domain/queue/db/inmemory"
	mockqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db/mock"
)

type retry struct {
	backoff     time.Duration
	maxAttempts int
}

func (r retry) Backoff(int) time.Duration {
	return r.backoff
}

func (r retry) MaxAttempts() int {
	return r.maxAttempts
}

func logger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestTask(t *testing.T) {
	type then struct {
		stats    refresh.Stats
		pending  int
		deferred int
		failed   string
	}
	for name, testcase := range map[string]struct {
		when  error
		retry retry
		then  then
	}{
		"refreshed item is done": {
			when:  nil,
			retry: retry{backoff: time.Hour, maxAttempts: 3},
			then:  then{stats: refresh.Stats{Done: 1}},
		},
		"transient failure is retried later": {
			when:  fmt.Errorf("%w: connection lost", domerr.ErrTransient),
			retry: retry{backoff: time.Hour, maxAttempts: 3},
			then:  then{stats: refresh.Stats{Retried: 1}, deferred: 1},
		},
		"timeout is retried later": {
			when:  context.DeadlineExceeded,
			retry: retry{backoff: time.Hour, maxAttempts: 3},
			then:  then{stats: refresh.Stats{Retried: 1}, deferred: 1},
		},
		"transient failure gives up after max attempts": {
			when:  fmt.Errorf("%w: connection lost", domerr.ErrTransient),
			retry: retry{backoff: time.Hour, maxAttempts: 1},
			then:  then{stats: refresh.Stats{Failed: 1}, failed: "connection lost"},
		},
		"configuration error fails at once": {
			when:  fmt.Errorf("%w: unknown instrument TReCS", domerr.ErrConfiguration),
			retry: retry{backoff: time.Hour, maxAttempts: 3},
			then:  then{stats: refresh.Stats{Failed: 1}, failed: "unknown instrument TReCS"},
		},
		"malformed bundle fails at once": {
			when:  fmt.Errorf("%w: no arms", domain.ErrBundleMalformed),
			retry: retry{backoff: time.Hour, maxAttempts: 3},
			then:  then{stats: refresh.Stats{Failed: 1}, failed: "no arms"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			queue := inmemory.New()
			if _, err := queue.Enqueue(ctx, 1, "N20220122S0100.fits"); err != nil {
				t.Fatal(err)
			}

			assoc := mockassoc.NewMockService()
			called := []domain.FrameID{}
			assoc.Impl.CacheAssociations = func(ctx context.Context, target domain.FrameID) error {
				called = append(called, target)
				return testcase.when
			}

			testee := refresh.Task(logger(), queue, assoc, "worker-1", testcase.retry, time.Minute)
			stats, updated, err := testee(ctx, refresh.Seed())
			if err != nil {
				t.Fatal(err)
			}
			if !updated {
				t.Error("task does not report update")
			}
			if stats != testcase.then.stats {
				t.Errorf("unmatch: (actual, expected) = (%s, %s)", stats, testcase.then.stats)
			}
			if len(called) != 1 || called[0] != 1 {
				t.Errorf("unexpected refresh: %v", called)
			}

			status, err := queue.Status(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if status.Pending != testcase.then.pending {
				t.Errorf("unmatch: pending (actual, expected) = (%d, %d)", status.Pending, testcase.then.pending)
			}
			if status.Deferred != testcase.then.deferred {
				t.Errorf("unmatch: deferred (actual, expected) = (%d, %d)", status.Deferred, testcase.then.deferred)
			}
			if len(status.InProgress) != 0 {
				t.Errorf("leased items are left: %+v", status.InProgress)
			}
			if testcase.then.failed == "" {
				if len(status.Failed) != 0 {
					t.Errorf("unexpected failures: %+v", status.Failed)
				}
			} else if len(status.Failed) != 1 || !strings.Contains(status.Failed[0].Error, testcase.then.failed) {
				t.Errorf("unexpected failures: %+v", status.Failed)
			}
		})
	}
}

func TestTask_EmptyQueue(t *testing.T) {
	assoc := mockassoc.NewMockService()
	testee := refresh.Task(logger(), inmemory.New(), assoc, "worker-1", retry{maxAttempts: 3}, time.Minute)

	stats, updated, err := testee(context.Background(), refresh.Seed())
	if err != nil {
		t.Fatal(err)
	}
	if updated {
		t.Error("task reports update for empty queue")
	}
	if stats != refresh.Seed() {
		t.Errorf("unmatch: (actual, expected) = (%s, %s)", stats, refresh.Seed())
	}
}

func TestTask_ShuttingDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := inmemory.New()
	if _, err := queue.Enqueue(ctx, 1, "N20220122S0100.fits"); err != nil {
		t.Fatal(err)
	}
	assoc := mockassoc.NewMockService()
	assoc.Impl.CacheAssociations = func(ctx context.Context, target domain.FrameID) error {
		cancel()
		return ctx.Err()
	}

	testee := refresh.Task(logger(), queue, assoc, "worker-1", retry{maxAttempts: 3}, time.Minute)
	stats, _, err := testee(ctx, refresh.Seed())
	if err != nil {
		t.Fatal(err)
	}
	if expected := (refresh.Stats{Released: 1}); stats != expected {
		t.Errorf("unmatch: (actual, expected) = (%s, %s)", stats, expected)
	}

	status, err := queue.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.Pending != 1 || len(status.InProgress) != 0 || len(status.Failed) != 0 {
		t.Errorf("item is not released: %+v", status)
	}
}

func TestTask_PopFailure(t *testing.T) {
	for name, testcase := range map[string]struct {
		when        error
		expectError bool
	}{
		"transient failure keeps the task": {
			when: fmt.Errorf("%w: connection lost", domerr.ErrTransient),
		},
		"other failure stops the task": {
			when:        errors.New("fake error"),
			expectError: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			queue := mockqueue.NewMockQueueInterface()
			queue.Impl.Pop = func(ctx context.Context, worker string) (domain.QueueItem, bool, error) {
				return domain.QueueItem{}, false, testcase.when
			}
			testee := refresh.Task(logger(), queue, mockassoc.NewMockService(), "worker-1", retry{maxAttempts: 3}, time.Minute)

			_, updated, err := testee(context.Background(), refresh.Seed())
			if updated {
				t.Error("task reports update")
			}
			if testcase.expectError {
				if !errors.Is(err, testcase.when) {
					t.Errorf("unexpected error: %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
