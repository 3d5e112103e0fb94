package lease

import (
	"context"
	"log"
	"time"

	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
	"github.com/fitsarchive/calassoc/pkg/loop/recurring"
)

// initial value for task: how many leases have expired.
func Seed() int {
	return 0
}

// Task puts items leased longer than lease back to the queue.
//
// Leases of crashed workers expire this way.
func Task(logger *log.Logger, queue kqueue.QueueInterface, lease time.Duration) recurring.Task[int] {
	return func(ctx context.Context, expired int) (int, bool, error) {
		n, err := queue.ExpireLeases(ctx, lease)
		if err != nil {
			if domerr.IsTransient(err) {
				logger.Printf("failed to expire leases: %s", err)
				return expired, false, nil
			}
			return expired, false, err
		}
		if 0 < n {
			logger.Printf("%d leases longer than %s are expired", n, lease)
		}
		return expired + n, false, nil
	}
}
