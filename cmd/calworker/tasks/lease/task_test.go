package lease_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/cmd/calworker/tasks/lease"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/queue/db/inmemory"
	mocks "github.com/fitsarchive/calassoc/pkg/domain/queue/db/mock"
)

func TestTask(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	queue := inmemory.NewWithClock(func() time.Time { return now })

	for id, name := range map[int64]string{1: "N20240301S0001.fits", 2: "N20240301S0002.fits"} {
		if _, err := queue.Enqueue(ctx, domain.FrameID(id), name); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := queue.Pop(ctx, "crashed"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(20 * time.Minute)
	if _, _, err := queue.Pop(ctx, "alive"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)

	testee := lease.Task(log.New(io.Discard, "", 0), queue, 10*time.Minute)
	expired, updated, err := testee(ctx, lease.Seed())
	if err != nil {
		t.Fatal(err)
	}
	if updated {
		t.Error("lease task should wait for the next cycle")
	}
	if expired != 1 {
		t.Errorf("unmatch: (actual, expected) = (%d, %d)", expired, 1)
	}

	status, err := queue.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(status.InProgress) != 1 || status.InProgress[0].Worker != "alive" {
		t.Errorf("unexpected leases: %+v", status.InProgress)
	}
	if status.Pending != 1 {
		t.Errorf("unmatch: (actual, expected) = (%d, %d)", status.Pending, 1)
	}
}

func TestTask_Error(t *testing.T) {
	expectedErr := errors.New("fake error")
	queue := mocks.NewMockQueueInterface()
	queue.Impl.ExpireLeases = func(ctx context.Context, olderThan time.Duration) (int, error) {
		return 0, expectedErr
	}

	testee := lease.Task(log.New(io.Discard, "", 0), queue, 10*time.Minute)
	if _, _, err := testee(context.Background(), lease.Seed()); !errors.Is(err, expectedErr) {
		t.Errorf("unexpected error: %v", err)
	}
}
