// Package inmemory is a refresh queue in memory, for a single process.
package inmemory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/queue/db"
)

type item struct {
	domain.QueueItem
	inprogress bool
	failed     bool
	failedAt   time.Time
	message    string
	notBefore  time.Time
}

type Queue struct {
	mu     sync.Mutex
	now    func() time.Time
	serial int64
	items  []*item
}

var _ db.QueueInterface = &Queue{}

func New() *Queue {
	return NewWithClock(time.Now)
}

// NewWithClock creates a queue which tells time with now.
func NewWithClock(now func() time.Time) *Queue {
	return &Queue{now: now}
}

func (q *Queue) waiting(frame domain.FrameID) *item {
	for _, it := range q.items {
		if it.FrameID == frame && !it.inprogress && !it.failed {
			return it
		}
	}
	return nil
}

func (q *Queue) leased(frame domain.FrameID) bool {
	for _, it := range q.items {
		if it.FrameID == frame && it.inprogress {
			return true
		}
	}
	return false
}

func (q *Queue) find(id int64) (*item, int) {
	for i, it := range q.items {
		if it.ID == id {
			return it, i
		}
	}
	return nil, -1
}

func (q *Queue) remove(i int) {
	q.items = slices.Delete(q.items, i, i+1)
}

func (q *Queue) Enqueue(ctx context.Context, frame domain.FrameID, filename string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiting(frame) != nil {
		return false, nil
	}
	q.serial += 1
	now := q.now()
	q.items = append(q.items, &item{
		QueueItem: domain.QueueItem{
			ID:       q.serial,
			FrameID:  frame,
			Filename: filename,
			Sortkey:  domain.Sortkey(filename),
			Added:    now,
		},
		notBefore: now,
	})
	return true, nil
}

func (q *Queue) Pop(ctx context.Context, worker string) (domain.QueueItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.QueueItem{}, false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var next *item
	for _, it := range q.items {
		if it.inprogress || it.failed || it.notBefore.After(now) || q.leased(it.FrameID) {
			continue
		}
		if next == nil || before(it, next) {
			next = it
		}
	}
	if next == nil {
		return domain.QueueItem{}, false, nil
	}
	next.inprogress = true
	next.Worker = worker
	next.StartedAt = now
	next.Attempts += 1
	return next.QueueItem, true, nil
}

// before reports whether a is to be popped earlier than b.
func before(a, b *item) bool {
	if c := strings.Compare(a.Sortkey, b.Sortkey); c != 0 {
		return c > 0
	}
	if !a.Added.Equal(b.Added) {
		return a.Added.Before(b.Added)
	}
	return a.ID < b.ID
}

func (q *Queue) Done(ctx context.Context, leased domain.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, i := q.find(leased.ID); 0 <= i {
		q.remove(i)
	}
	return nil
}

func (q *Queue) Retry(ctx context.Context, leased domain.QueueItem, after time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.putBack(leased.ID, q.now().Add(after))
	return nil
}

func (q *Queue) Release(ctx context.Context, leased domain.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.putBack(leased.ID, q.now())
	return nil
}

// putBack ends the lease. When the target is queued again meanwhile, the
// item merges to the queued one.
func (q *Queue) putBack(id int64, notBefore time.Time) {
	it, i := q.find(id)
	if it == nil || !it.inprogress {
		return
	}
	if w := q.waiting(it.FrameID); w != nil {
		if w.Attempts < it.Attempts {
			w.Attempts = it.Attempts
		}
		q.remove(i)
		return
	}
	it.inprogress = false
	it.Worker = ""
	it.StartedAt = time.Time{}
	it.notBefore = notBefore
}

func (q *Queue) Fail(ctx context.Context, leased domain.QueueItem, message string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, _ := q.find(leased.ID)
	if it == nil {
		return nil
	}
	it.inprogress = false
	it.failed = true
	it.failedAt = q.now()
	it.message = message
	it.Worker = ""
	return nil
}

func (q *Queue) ExpireLeases(ctx context.Context, olderThan time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	deadline := q.now().Add(-olderThan)
	expired := []int64{}
	for _, it := range q.items {
		if it.inprogress && it.StartedAt.Before(deadline) {
			expired = append(expired, it.ID)
		}
	}
	for _, id := range expired {
		q.putBack(id, q.now())
	}
	return len(expired), nil
}

func (q *Queue) Pending(ctx context.Context, frame domain.FrameID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		if it.FrameID == frame && !it.failed {
			return true, nil
		}
	}
	return false, nil
}

func (q *Queue) Status(ctx context.Context) (domain.QueueStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.QueueStatus{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	ret := domain.QueueStatus{InProgress: []domain.InProgress{}, Failed: []domain.FailedItem{}}
	for _, it := range q.items {
		switch {
		case it.failed:
			ret.Failed = append(ret.Failed, domain.FailedItem{
				FrameID: it.FrameID, Filename: it.Filename, FailedAt: it.failedAt, Error: it.message,
			})
		case it.inprogress:
			ret.InProgress = append(ret.InProgress, domain.InProgress{
				Worker: it.Worker, FrameID: it.FrameID, Filename: it.Filename, StartedAt: it.StartedAt,
			})
		case it.notBefore.After(now):
			ret.Deferred += 1
		default:
			ret.Pending += 1
		}
	}
	return ret, nil
}

func (q *Queue) RetryFailed(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	count := 0
	kept := make([]*item, 0, len(q.items))
	for _, it := range q.items {
		if !it.failed {
			kept = append(kept, it)
			continue
		}
		count += 1
		if q.waiting(it.FrameID) != nil {
			continue // merged to the waiting one.
		}
		it.failed = false
		it.failedAt = time.Time{}
		it.message = ""
		it.Attempts = 0
		it.notBefore = now
		kept = append(kept, it)
	}
	q.items = kept
	return count, nil
}
