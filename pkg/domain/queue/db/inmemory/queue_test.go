package inmemory_test

import (
	"context"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/queue/db/inmemory"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newQueue() (*inmemory.Queue, *clock) {
	c := &clock{now: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)}
	return inmemory.NewWithClock(c.Now), c
}

func mustPop(t *testing.T, q *inmemory.Queue, worker string) domain.QueueItem {
	t.Helper()
	item, ok, err := q.Pop(context.Background(), worker)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("queue is empty")
	}
	return item
}

func mustBeEmpty(t *testing.T, q *inmemory.Queue) {
	t.Helper()
	item, ok, err := q.Pop(context.Background(), "w")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	testee, _ := newQueue()

	steps := []struct {
		frame domain.FrameID
		then  bool
	}{
		{frame: 1, then: true},
		{frame: 1, then: false},
		{frame: 2, then: true},
	}
	for _, s := range steps {
		actual, err := testee.Enqueue(ctx, s.frame, "N20240301S0001.fits")
		if err != nil {
			t.Fatal(err)
		}
		if actual != s.then {
			t.Errorf("frame %s: unmatch: (actual, expected) = (%v, %v)", s.frame, actual, s.then)
		}
	}

	t.Run("a leased frame can be queued again", func(t *testing.T) {
		item := mustPop(t, testee, "w1")
		actual, err := testee.Enqueue(ctx, item.FrameID, item.Filename)
		if err != nil {
			t.Fatal(err)
		}
		if !actual {
			t.Error("leased frame is not queued")
		}
	})
}

func TestPop_Order(t *testing.T) {
	ctx := context.Background()
	testee, c := newQueue()

	for _, q := range []struct {
		frame    domain.FrameID
		filename string
	}{
		{1, "N20240301S0010.fits"},
		{2, "unknown.fits"},
		{3, "N20240302S0001.fits"},
		{4, "N20240301S0010_flat.fits"},
	} {
		if _, err := testee.Enqueue(ctx, q.frame, q.filename); err != nil {
			t.Fatal(err)
		}
		c.Advance(time.Second)
	}

	expected := []domain.FrameID{3, 1, 4, 2}
	for i, e := range expected {
		item := mustPop(t, testee, "w")
		if item.FrameID != e {
			t.Errorf("#%d: unmatch: (actual, expected) = (%s, %s)", i, item.FrameID, e)
		}
		if item.Attempts != 1 || item.Worker != "w" {
			t.Errorf("#%d: unexpected lease: %+v", i, item)
		}
	}
	mustBeEmpty(t, testee)
}

func TestPop_SkipsFramesLeased(t *testing.T) {
	ctx := context.Background()
	testee, _ := newQueue()

	if _, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits"); err != nil {
		t.Fatal(err)
	}
	first := mustPop(t, testee, "w1")
	if _, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits"); err != nil {
		t.Fatal(err)
	}
	mustBeEmpty(t, testee)

	if err := testee.Done(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := mustPop(t, testee, "w2")
	if second.ID == first.ID || second.FrameID != 1 {
		t.Errorf("unexpected item: %+v", second)
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retried items wait for the delay", func(t *testing.T) {
		testee, c := newQueue()
		if _, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits"); err != nil {
			t.Fatal(err)
		}
		item := mustPop(t, testee, "w")
		if err := testee.Retry(ctx, item, time.Minute); err != nil {
			t.Fatal(err)
		}
		mustBeEmpty(t, testee)

		status, err := testee.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if status.Deferred != 1 || status.Pending != 0 {
			t.Errorf("unexpected status: %+v", status)
		}

		c.Advance(time.Minute)
		again := mustPop(t, testee, "w")
		if again.ID != item.ID || again.Attempts != 2 {
			t.Errorf("unexpected item: %+v", again)
		}
	})

	t.Run("retried items merge into the frame queued again", func(t *testing.T) {
		testee, _ := newQueue()
		if _, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits"); err != nil {
			t.Fatal(err)
		}
		item := mustPop(t, testee, "w")
		if _, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits"); err != nil {
			t.Fatal(err)
		}
		if err := testee.Retry(ctx, item, 0); err != nil {
			t.Fatal(err)
		}

		status, err := testee.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if status.Pending != 1 || len(status.InProgress) != 0 {
			t.Errorf("unexpected status: %+v", status)
		}
		again := mustPop(t, testee, "w")
		if again.Attempts != 2 {
			t.Errorf("attempts are lost: %+v", again)
		}
	})
}

func TestFail(t *testing.T) {
	ctx := context.Background()
	testee, _ := newQueue()

	if _, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits"); err != nil {
		t.Fatal(err)
	}
	item := mustPop(t, testee, "w")
	if err := testee.Fail(ctx, item, "boom"); err != nil {
		t.Fatal(err)
	}
	mustBeEmpty(t, testee)

	pending, err := testee.Pending(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if pending {
		t.Error("failed frame is pending")
	}

	status, err := testee.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(status.Failed) != 1 || status.Failed[0].Error != "boom" || status.Failed[0].FrameID != 1 {
		t.Errorf("unexpected status: %+v", status)
	}

	t.Run("failed frames can be queued again", func(t *testing.T) {
		added, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits")
		if err != nil {
			t.Fatal(err)
		}
		if !added {
			t.Error("failed frame is not queued")
		}
	})

	t.Run("retrying failed items merges them to the waiting ones", func(t *testing.T) {
		count, err := testee.RetryFailed(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("unmatch: (actual, expected) = (%d, %d)", count, 1)
		}
		status, err := testee.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if status.Pending != 1 || len(status.Failed) != 0 {
			t.Errorf("unexpected status: %+v", status)
		}
	})
}

func TestRetryFailed(t *testing.T) {
	ctx := context.Background()
	testee, _ := newQueue()

	for _, frame := range []domain.FrameID{1, 2} {
		if _, err := testee.Enqueue(ctx, frame, "N20240301S0001.fits"); err != nil {
			t.Fatal(err)
		}
		item := mustPop(t, testee, "w")
		if err := testee.Fail(ctx, item, "boom"); err != nil {
			t.Fatal(err)
		}
	}

	count, err := testee.RetryFailed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("unmatch: (actual, expected) = (%d, %d)", count, 2)
	}
	for range 2 {
		item := mustPop(t, testee, "w")
		if item.Attempts != 1 {
			t.Errorf("attempts are not reset: %+v", item)
		}
	}
	mustBeEmpty(t, testee)
}

func TestExpireLeases(t *testing.T) {
	ctx := context.Background()
	testee, c := newQueue()

	for _, frame := range []domain.FrameID{1, 2} {
		if _, err := testee.Enqueue(ctx, frame, "N20240301S0001.fits"); err != nil {
			t.Fatal(err)
		}
	}
	mustPop(t, testee, "stale")
	c.Advance(10 * time.Minute)
	mustPop(t, testee, "alive")

	count, err := testee.ExpireLeases(ctx, 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("unmatch: (actual, expected) = (%d, %d)", count, 1)
	}

	status, err := testee.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Pending != 1 || len(status.InProgress) != 1 || status.InProgress[0].Worker != "alive" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestPending(t *testing.T) {
	ctx := context.Background()
	testee, _ := newQueue()

	if _, err := testee.Enqueue(ctx, 1, "N20240301S0001.fits"); err != nil {
		t.Fatal(err)
	}

	for name, testcase := range map[string]struct {
		when domain.FrameID
		then bool
	}{
		"queued":     {when: 1, then: true},
		"not queued": {when: 2, then: false},
	} {
		t.Run(name, func(t *testing.T) {
			actual, err := testee.Pending(ctx, testcase.when)
			if err != nil {
				t.Fatal(err)
			}
			if actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}
		})
	}

	t.Run("leased frames are pending", func(t *testing.T) {
		mustPop(t, testee, "w")
		actual, err := testee.Pending(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !actual {
			t.Error("leased frame is not pending")
		}
	})
}
