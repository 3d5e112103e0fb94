package main

import (
	"context"
	"log"
	"time"

	"github.com/fitsarchive/calassoc/cmd/calworker/tasks/lease"
	"github.com/fitsarchive/calassoc/cmd/calworker/tasks/refresh"
	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/domain/archive"
	"github.com/fitsarchive/calassoc/pkg/loop"
	"github.com/fitsarchive/calassoc/pkg/loop/recurring"
)

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

func WithTimestamp() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetFlags(l.Flags() | log.Ldate | log.Ltime | log.Lmicroseconds)
		return l
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	// Policy for the looping
	Policy recurring.Policy
}

// Start a refresh worker.
//
// Args:
//
// - ctx
//
// - logger : logger for monitoring loop.
//
// - arc : the archive
//
// - assoc : association service writing the cache
//
// - worker : name of the worker
//
// - manifest
func StartRefreshLoop(
	ctx context.Context,
	logger *log.Logger,
	arc archive.Archive,
	assoc association.Service,
	worker string,
	manifest LoopManifest,
) (refresh.Stats, error) {
	conf := arc.Config().Worker()
	l := byLogger(logger, Copied(), WithPrefix("[refresh loop "+worker+"]"))
	return loop.Start(
		ctx, refresh.Seed(),
		loop.Monitor(
			l,
			refresh.Task(
				l, arc.Queue().Database(), assoc, worker,
				conf.Retry(), conf.TaskTimeout(),
			).Applied(manifest.Policy),
		),
	)
}

// Start the loop expiring leases of crashed workers.
//
// It checks leases once per a tenth of the lease.
func StartLeaseLoop(
	ctx context.Context,
	logger *log.Logger,
	arc archive.Archive,
) error {
	lease_ := arc.Config().Worker().Lease()
	l := byLogger(logger, Copied(), WithPrefix("[lease loop]"))
	_, err := loop.Start(
		ctx, lease.Seed(),
		loop.Monitor(
			l,
			lease.Task(l, arc.Queue().Database(), lease_).
				Applied(recurring.UntilError(recurring.Forever(max(lease_/10, time.Second)))),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}
