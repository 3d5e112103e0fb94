package postgres_test

import (
	"context"
	"testing"
	"time"

	ctxutil "github.com/fitsarchive/calassoc/internal/testutils/context"
	"github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool/testenv"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/queue/db/postgres"
)

func frame(id domain.FrameID, filename string) domain.Frame {
	return domain.Frame{ID: id, Filename: filename, Canonical: true, Header: domain.Record{}}
}

func TestQueue(t *testing.T) {
	ctx, cancel := ctxutil.WithTest(context.Background(), t)
	defer cancel()
	pool := testenv.GetPool(ctx, t)
	testenv.InsertFrames(
		ctx, t, pool,
		frame(1, "N20220101S0001.fits"),
		frame(2, "N20220102S0001.fits"),
	)
	testee := postgres.New(pool)

	t.Run("a frame waits at most once", func(t *testing.T) {
		for _, expected := range []bool{true, false} {
			added, err := testee.Enqueue(ctx, 1, "N20220101S0001.fits")
			if err != nil {
				t.Fatal(err)
			}
			if added != expected {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", added, expected)
			}
		}
		if _, err := testee.Enqueue(ctx, 2, "N20220102S0001.fits"); err != nil {
			t.Fatal(err)
		}
	})

	var leased domain.QueueItem
	t.Run("newer observation is popped first", func(t *testing.T) {
		item, ok, err := testee.Pop(ctx, "worker-a")
		if err != nil || !ok {
			t.Fatalf("failed to pop: %v, %v", ok, err)
		}
		if item.FrameID != 2 || item.Attempts != 1 || item.Worker != "worker-a" {
			t.Errorf("unexpected item: %+v", item)
		}
		leased = item
	})

	t.Run("a frame in progress can wait again, but is not popped twice", func(t *testing.T) {
		added, err := testee.Enqueue(ctx, 2, "N20220102S0001.fits")
		if err != nil {
			t.Fatal(err)
		}
		if !added {
			t.Error("frame in progress should be queued again")
		}

		item, ok, err := testee.Pop(ctx, "worker-b")
		if err != nil || !ok {
			t.Fatalf("failed to pop: %v, %v", ok, err)
		}
		if item.FrameID != 1 {
			t.Errorf("unexpected item: %+v", item)
		}
		if err := testee.Done(ctx, item); err != nil {
			t.Fatal(err)
		}

		if _, ok, err := testee.Pop(ctx, "worker-b"); err != nil || ok {
			t.Errorf("nothing should be popped: %v, %v", ok, err)
		}
	})

	t.Run("released item is merged into waiting one", func(t *testing.T) {
		if err := testee.Release(ctx, leased); err != nil {
			t.Fatal(err)
		}
		status, err := testee.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if status.Pending != 1 || len(status.InProgress) != 0 {
			t.Errorf("unexpected status: %+v", status)
		}

		item, ok, err := testee.Pop(ctx, "worker-a")
		if err != nil || !ok {
			t.Fatalf("failed to pop: %v, %v", ok, err)
		}
		if item.Attempts != 2 {
			t.Errorf("attempts should be carried: %+v", item)
		}
		leased = item
	})

	t.Run("retried item waits for the delay", func(t *testing.T) {
		if err := testee.Retry(ctx, leased, time.Hour); err != nil {
			t.Fatal(err)
		}
		if _, ok, err := testee.Pop(ctx, "worker-a"); err != nil || ok {
			t.Errorf("nothing should be popped: %v, %v", ok, err)
		}
		status, err := testee.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if status.Pending != 0 || status.Deferred != 1 {
			t.Errorf("unexpected status: %+v", status)
		}
		pending, err := testee.Pending(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if !pending {
			t.Error("deferred frame should be pending")
		}
	})
}

func TestQueue_FailAndRetryFailed(t *testing.T) {
	ctx, cancel := ctxutil.WithTest(context.Background(), t)
	defer cancel()
	pool := testenv.GetPool(ctx, t)
	testenv.InsertFrames(ctx, t, pool, frame(1, "N20220101S0001.fits"))
	testee := postgres.New(pool)

	if _, err := testee.Enqueue(ctx, 1, "N20220101S0001.fits"); err != nil {
		t.Fatal(err)
	}
	item, ok, err := testee.Pop(ctx, "worker-a")
	if err != nil || !ok {
		t.Fatalf("failed to pop: %v, %v", ok, err)
	}
	if err := testee.Fail(ctx, item, "boom"); err != nil {
		t.Fatal(err)
	}

	status, err := testee.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(status.Failed) != 1 || status.Failed[0].Error != "boom" || status.Pending != 0 {
		t.Errorf("unexpected status: %+v", status)
	}
	if pending, err := testee.Pending(ctx, 1); err != nil || pending {
		t.Errorf("failed frame should not be pending: %v, %v", pending, err)
	}

	n, err := testee.RetryFailed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("unmatch: (actual, expected) = (%d, %d)", n, 1)
	}
	again, ok, err := testee.Pop(ctx, "worker-a")
	if err != nil || !ok {
		t.Fatalf("failed to pop: %v, %v", ok, err)
	}
	if again.Attempts != 1 {
		t.Errorf("attempts should be reset: %+v", again)
	}
}

func TestQueue_ExpireLeases(t *testing.T) {
	ctx, cancel := ctxutil.WithTest(context.Background(), t)
	defer cancel()
	pool := testenv.GetPool(ctx, t)
	testenv.InsertFrames(ctx, t, pool, frame(1, "N20220101S0001.fits"))
	testee := postgres.New(pool)

	if _, err := testee.Enqueue(ctx, 1, "N20220101S0001.fits"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := testee.Pop(ctx, "worker-a"); err != nil || !ok {
		t.Fatalf("failed to pop: %v, %v", ok, err)
	}

	if n, err := testee.ExpireLeases(ctx, time.Hour); err != nil || n != 0 {
		t.Errorf("fresh lease should not expire: %d, %v", n, err)
	}

	time.Sleep(10 * time.Millisecond)
	if n, err := testee.ExpireLeases(ctx, time.Millisecond); err != nil || n != 1 {
		t.Errorf("stale lease should expire: %d, %v", n, err)
	}
	if _, ok, err := testee.Pop(ctx, "worker-b"); err != nil || !ok {
		t.Errorf("expired item should be popped again: %v, %v", ok, err)
	}
}
