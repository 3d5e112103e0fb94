package postgres

import (
	"context"
	"errors"
	"time"

	kpool "github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool"
	"github.com/fitsarchive/calassoc/pkg/domain"
	dberr "github.com/fitsarchive/calassoc/pkg/domain/errors/dberrors/postgres"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
	xe "github.com/fitsarchive/calassoc/pkg/errors"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

// failed_at of living items is 'infinity', so that
// unique ("frame_id", "inprogress", "failed_at") allows one waiting item and
// one leased item for each frame, and any number of failed ones.

type pgQueue struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kqueue.QueueInterface {
	return &pgQueue{pool: pool}
}

func (m *pgQueue) Enqueue(ctx context.Context, frame domain.FrameID, filename string) (bool, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return false, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	ctag, err := conn.Exec(
		ctx,
		`
		insert into "refresh_queue"
			("frame_id", "filename", "sortkey", "inprogress", "failed_at", "added", "not_before")
		values ($1, $2, $3, false, 'infinity', now(), now())
		on conflict ("frame_id", "inprogress", "failed_at") do nothing
		`,
		int64(frame), filename, domain.Sortkey(filename),
	)
	if err != nil {
		return false, dberr.Classify(xe.Wrap(err))
	}
	return ctag.RowsAffected() == 1, nil
}

func (m *pgQueue) Pop(ctx context.Context, worker string) (domain.QueueItem, bool, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.QueueItem{}, false, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	var item domain.QueueItem
	var frame int64
	var attempts int32
	if err := conn.QueryRow(
		ctx,
		`
		with "next" as (
			select "id" from "refresh_queue" as "q"
			where
				not "inprogress"
				and "failed_at" = 'infinity'
				and "not_before" <= now()
				and not exists (
					select 1 from "refresh_queue" as "l"
					where "l"."frame_id" = "q"."frame_id" and "l"."inprogress"
				)
			order by "sortkey" desc, "added", "id"
			limit 1
			for update skip locked
		)
		update "refresh_queue" as "r"
		set
			"inprogress" = true,
			"worker" = $1,
			"started_at" = now(),
			"attempts" = "r"."attempts" + 1
		from "next"
		where "r"."id" = "next"."id"
		returning
			"r"."id", "r"."frame_id", "r"."filename", "r"."sortkey",
			"r"."added", "r"."attempts", "r"."worker", "r"."started_at"
		`,
		worker,
	).Scan(
		&item.ID, &frame, &item.Filename, &item.Sortkey,
		&item.Added, &attempts, &item.Worker, &item.StartedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QueueItem{}, false, nil
		}
		return domain.QueueItem{}, false, dberr.Classify(xe.Wrap(err))
	}
	item.FrameID = domain.FrameID(frame)
	item.Attempts = int(attempts)
	return item, true, nil
}

func (m *pgQueue) Done(ctx context.Context, item domain.QueueItem) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	if _, err := conn.Exec(
		ctx, `delete from "refresh_queue" where "id" = $1`, item.ID,
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}

func (m *pgQueue) Retry(ctx context.Context, item domain.QueueItem, after time.Duration) error {
	return m.putBack(ctx, []int64{item.ID}, after)
}

func (m *pgQueue) Release(ctx context.Context, item domain.QueueItem) error {
	return m.putBack(ctx, []int64{item.ID}, 0)
}

// putBack ends leases of items.
//
// Items whose frame is queued again meanwhile are merged into the waiting
// item, since the unique key does not allow two.
func (m *pgQueue) putBack(ctx context.Context, ids []int64, after time.Duration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx,
		`
		with "merged" as (
			delete from "refresh_queue" as "l"
			using "refresh_queue" as "w"
			where
				"l"."id" = any($1::bigint[]) and "l"."inprogress"
				and "w"."frame_id" = "l"."frame_id"
				and not "w"."inprogress" and "w"."failed_at" = 'infinity'
			returning "w"."id" as "id", "l"."attempts" as "attempts"
		)
		update "refresh_queue" as "w"
		set "attempts" = greatest("w"."attempts", "merged"."attempts")
		from "merged"
		where "w"."id" = "merged"."id"
		`,
		ids,
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "refresh_queue"
		set
			"inprogress" = false,
			"worker" = null,
			"started_at" = null,
			"not_before" = now() + $2::interval
		where "id" = any($1::bigint[]) and "inprogress"
		`,
		ids, interval(after),
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}

func interval(d time.Duration) pgtype.Interval {
	return pgtype.Interval{Microseconds: d.Microseconds(), Status: pgtype.Present}
}

func (m *pgQueue) Fail(ctx context.Context, item domain.QueueItem, message string) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	if _, err := conn.Exec(
		ctx,
		`
		update "refresh_queue"
		set
			"inprogress" = false,
			"failed_at" = clock_timestamp(),
			"error" = $2,
			"worker" = null
		where "id" = $1
		`,
		item.ID, message,
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}

func (m *pgQueue) ExpireLeases(ctx context.Context, olderThan time.Duration) (int, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(
		ctx,
		`
		select "id" from "refresh_queue"
		where "inprogress" and "started_at" < now() - $1::interval
		for update skip locked
		`,
		interval(olderThan),
	)
	if err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, dberr.Classify(xe.Wrap(err))
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}

	if len(ids) == 0 {
		return 0, nil
	}
	if err := m.putBack(ctx, ids, 0); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (m *pgQueue) Pending(ctx context.Context, frame domain.FrameID) (bool, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return false, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	var pending bool
	if err := conn.QueryRow(
		ctx,
		`
		select exists (
			select 1 from "refresh_queue"
			where "frame_id" = $1 and "failed_at" = 'infinity'
		)
		`,
		int64(frame),
	).Scan(&pending); err != nil {
		return false, dberr.Classify(xe.Wrap(err))
	}
	return pending, nil
}

func (m *pgQueue) Status(ctx context.Context) (domain.QueueStatus, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	ret := domain.QueueStatus{InProgress: []domain.InProgress{}, Failed: []domain.FailedItem{}}

	var pending, deferred int64
	if err := conn.QueryRow(
		ctx,
		`
		select
			count(*) filter (where "not_before" <= now()),
			count(*) filter (where "not_before" > now())
		from "refresh_queue"
		where not "inprogress" and "failed_at" = 'infinity'
		`,
	).Scan(&pending, &deferred); err != nil {
		return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
	}
	ret.Pending = int(pending)
	ret.Deferred = int(deferred)

	inprogress, err := conn.Query(
		ctx,
		`
		select "worker", "frame_id", "filename", "started_at" from "refresh_queue"
		where "inprogress"
		order by "started_at", "id"
		`,
	)
	if err != nil {
		return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
	}
	for inprogress.Next() {
		var ip domain.InProgress
		var worker pgtype.Text
		var frame int64
		if err := inprogress.Scan(&worker, &frame, &ip.Filename, &ip.StartedAt); err != nil {
			inprogress.Close()
			return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
		}
		ip.Worker = worker.String
		ip.FrameID = domain.FrameID(frame)
		ret.InProgress = append(ret.InProgress, ip)
	}
	inprogress.Close()
	if err := inprogress.Err(); err != nil {
		return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
	}

	failed, err := conn.Query(
		ctx,
		`
		select "frame_id", "filename", "failed_at", coalesce("error", '') from "refresh_queue"
		where "failed_at" <> 'infinity'
		order by "failed_at", "id"
		`,
	)
	if err != nil {
		return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
	}
	defer failed.Close()
	for failed.Next() {
		var f domain.FailedItem
		var frame int64
		if err := failed.Scan(&frame, &f.Filename, &f.FailedAt, &f.Error); err != nil {
			return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
		}
		f.FrameID = domain.FrameID(frame)
		ret.Failed = append(ret.Failed, f)
	}
	if err := failed.Err(); err != nil {
		return domain.QueueStatus{}, dberr.Classify(xe.Wrap(err))
	}
	return ret, nil
}

func (m *pgQueue) RetryFailed(ctx context.Context) (int, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}
	defer tx.Rollback(ctx)

	// failed items of frames waiting already are merged into them.
	merged, err := tx.Exec(
		ctx,
		`
		delete from "refresh_queue" as "f"
		where
			"f"."failed_at" <> 'infinity'
			and exists (
				select 1 from "refresh_queue" as "w"
				where
					"w"."frame_id" = "f"."frame_id"
					and not "w"."inprogress" and "w"."failed_at" = 'infinity'
			)
		`,
	)
	if err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}

	// when a frame failed more than once, the latest is put back.
	duplicated, err := tx.Exec(
		ctx,
		`
		delete from "refresh_queue" as "f"
		where
			"f"."failed_at" <> 'infinity'
			and exists (
				select 1 from "refresh_queue" as "g"
				where
					"g"."frame_id" = "f"."frame_id"
					and "g"."failed_at" <> 'infinity'
					and ("g"."failed_at", "g"."id") > ("f"."failed_at", "f"."id")
			)
		`,
	)
	if err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}

	restored, err := tx.Exec(
		ctx,
		`
		update "refresh_queue"
		set
			"failed_at" = 'infinity',
			"error" = null,
			"attempts" = 0,
			"not_before" = now()
		where "failed_at" <> 'infinity'
		`,
	)
	if err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, dberr.Classify(xe.Wrap(err))
	}
	return int(merged.RowsAffected() + duplicated.RowsAffected() + restored.RowsAffected()), nil
}
