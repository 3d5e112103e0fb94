package db

import (
	"context"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
)

// QueueInterface is the refresh queue: targets whose associations are to be
// computed again.
//
// A target is queued at most once at a time, apart from one in progress and
// ones failed. Items are popped by sortkey, descending, then first queued first.
type QueueInterface interface {
	// Enqueue adds the target.
	//
	// Returns
	//
	// - bool: true if added. false if the target is already waiting.
	//
	// - error
	Enqueue(ctx context.Context, frame domain.FrameID, filename string) (bool, error)

	// Pop leases the next item to the worker.
	//
	// Targets in progress by another worker are not popped, and neither are
	// items deferred by Retry.
	//
	// Returns
	//
	// - domain.QueueItem: leased item. Attempts counts this lease in.
	//
	// - bool: false when nothing is to be done.
	//
	// - error
	Pop(ctx context.Context, worker string) (domain.QueueItem, bool, error)

	// Done removes the leased item.
	Done(ctx context.Context, item domain.QueueItem) error

	// Retry gives the leased item back, to be popped after the delay.
	//
	// If the target is queued again meanwhile, the item is merged to it.
	Retry(ctx context.Context, item domain.QueueItem, after time.Duration) error

	// Release gives the leased item back at once, for canceled work.
	Release(ctx context.Context, item domain.QueueItem) error

	// Fail marks the leased item failed. Failed items are not popped until
	// RetryFailed.
	Fail(ctx context.Context, item domain.QueueItem, message string) error

	// ExpireLeases releases items leased longer than the duration, and
	// returns how many are released.
	ExpireLeases(ctx context.Context, olderThan time.Duration) (int, error)

	// Pending reports whether the target waits for or is under refresh.
	Pending(ctx context.Context, frame domain.FrameID) (bool, error)

	Status(ctx context.Context) (domain.QueueStatus, error)

	// RetryFailed puts failed items back to the queue, and returns how many.
	RetryFailed(ctx context.Context) (int, error)
}
