package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/domain"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
	"github.com/fitsarchive/calassoc/pkg/loop/recurring"
)

// Stats counts what a worker has done.
type Stats struct {
	Done     int
	Retried  int
	Failed   int
	Released int
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"done = %d, retried = %d, failed = %d, released = %d",
		s.Done, s.Retried, s.Failed, s.Released,
	)
}

// initial value for task
func Seed() Stats {
	return Stats{}
}

// Retry decides how transient failures are retried.
type Retry interface {
	// Backoff is the delay before the attempt-th retry.
	Backoff(attempt int) time.Duration

	// MaxAttempts is how many times an item is tried before it is marked failed.
	MaxAttempts() int
}

// Task refreshes the cache of a frame popped from the refresh queue.
//
// args:
//
// - logger
//
// - queue: refresh queue
//
// - assoc: association service writing the cache
//
// - worker: name of the worker, recorded on leased items
//
// - retry: retry policy of transient failures
//
// - timeout: time limit of a refresh
//
// return:
//
// - task: it reports true when it has taken an item.
// Failures of refreshes are recorded on the queue, and do not stop the task.
func Task(
	logger *log.Logger,
	queue kqueue.QueueInterface,
	assoc association.Service,
	worker string,
	retry Retry,
	timeout time.Duration,
) recurring.Task[Stats] {
	return func(ctx context.Context, stats Stats) (Stats, bool, error) {
		item, ok, err := queue.Pop(ctx, worker)
		if err != nil {
			if domerr.IsTransient(err) {
				logger.Printf("failed to pop the refresh queue: %s", err)
				return stats, false, nil
			}
			return stats, false, err
		}
		if !ok {
			return stats, false, nil
		}

		err = func() error {
			tctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return assoc.CacheAssociations(tctx, item.FrameID)
		}()

		// shutting down. another worker takes it over.
		if ctx.Err() != nil {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if rerr := queue.Release(rctx, item); rerr != nil {
				logger.Printf("failed to release %s (id = %s): %s", item.Filename, item.FrameID, rerr)
			}
			stats.Released += 1
			return stats, true, nil
		}

		return settle(ctx, logger, queue, retry, item, err, stats), true, nil
	}
}

// settle records the outcome of the refresh of the item.
func settle(
	ctx context.Context,
	logger *log.Logger,
	queue kqueue.QueueInterface,
	retry Retry,
	item domain.QueueItem,
	err error,
	stats Stats,
) Stats {
	var serr error
	switch {
	case err == nil:
		serr = queue.Done(ctx, item)
		stats.Done += 1

	case domerr.IsTransient(err) && item.Attempts < retry.MaxAttempts():
		after := retry.Backoff(item.Attempts)
		logger.Printf(
			"refresh of %s (id = %s) failed (attempt #%d). retry after %s: %s",
			item.Filename, item.FrameID, item.Attempts, after, err,
		)
		serr = queue.Retry(ctx, item, after)
		stats.Retried += 1

	default:
		if domerr.IsTransient(err) {
			err = fmt.Errorf("gave up after %d attempts: %w", item.Attempts, err)
		}
		logger.Printf("refresh of %s (id = %s) failed: %s", item.Filename, item.FrameID, err)
		serr = queue.Fail(ctx, item, err.Error())
		stats.Failed += 1
	}

	// the lease expires, and the item comes back anyway.
	if serr != nil {
		logger.Printf("failed to settle %s (id = %s): %s", item.Filename, item.FrameID, serr)
	}
	return stats
}
