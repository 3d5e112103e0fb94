package postgres

import (
	"context"
	"errors"
	"time"

	kpool "github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool"
	"github.com/fitsarchive/calassoc/pkg/domain"
	kcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
	dberr "github.com/fitsarchive/calassoc/pkg/domain/errors/dberrors/postgres"
	xe "github.com/fitsarchive/calassoc/pkg/errors"
	"github.com/fitsarchive/calassoc/pkg/utils"
	"github.com/jackc/pgx/v4"
)

type pgCache struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kcache.CacheInterface {
	return &pgCache{pool: pool}
}

func (m *pgCache) Replace(ctx context.Context, target domain.FrameID, entries []domain.CacheEntry) error {
	for _, e := range entries {
		if e.Target != target {
			return xe.New("cache entry for another target is given")
		}
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	defer tx.Rollback(ctx)

	// writers of the same target are serialized.
	if _, err := tx.Exec(ctx, `select pg_advisory_xact_lock($1)`, int64(target)); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}

	if _, err := tx.Exec(
		ctx, `delete from "calibration_cache" where "target_id" = $1`, int64(target),
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}

	if len(entries) != 0 {
		caltypes := utils.Map(entries, func(e domain.CacheEntry) string { return string(e.Caltype) })
		cals := utils.Map(entries, func(e domain.CacheEntry) int64 { return int64(e.Cal) })
		ranks := utils.Map(entries, func(e domain.CacheEntry) int32 { return int32(e.Rank) })
		if _, err := tx.Exec(
			ctx,
			`
			insert into "calibration_cache" ("target_id", "caltype", "cal_id", "rank")
			select $1, "caltype", "cal_id", "rank"
			from unnest($2::text[], $3::bigint[], $4::int[]) as "e"("caltype", "cal_id", "rank")
			`,
			int64(target), caltypes, cals, ranks,
		); err != nil {
			return dberr.Classify(xe.Wrap(err))
		}
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "calibration_cache_state" ("target_id", "refreshed_at")
		values ($1, now())
		on conflict ("target_id") do update set "refreshed_at" = excluded."refreshed_at"
		`,
		int64(target),
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}

func (m *pgCache) Lookup(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (domain.Cached, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.Cached{}, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	// read the state and the rows in a snapshot.
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.Cached{}, dberr.Classify(xe.Wrap(err))
	}
	defer tx.Rollback(ctx)

	ret := domain.Cached{Entries: []domain.CacheEntry{}}
	var refreshed time.Time
	if err := tx.QueryRow(
		ctx,
		`select "refreshed_at" from "calibration_cache_state" where "target_id" = $1`,
		int64(target),
	).Scan(&refreshed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ret, nil
		}
		return domain.Cached{}, dberr.Classify(xe.Wrap(err))
	}
	ret.Refreshed = refreshed

	var ct *string
	if caltype != nil {
		c := string(*caltype)
		ct = &c
	}
	rows, err := tx.Query(
		ctx,
		`
		select "caltype", "cal_id", "rank" from "calibration_cache"
		where "target_id" = $1 and ($2::text is null or "caltype" = $2::text)
		order by "caltype", "rank"
		`,
		int64(target), ct,
	)
	if err != nil {
		return domain.Cached{}, dberr.Classify(xe.Wrap(err))
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.CacheEntry
		var c string
		var cal int64
		var rank int32
		if err := rows.Scan(&c, &cal, &rank); err != nil {
			return domain.Cached{}, dberr.Classify(xe.Wrap(err))
		}
		e.Target = target
		e.Caltype = domain.Caltype(c)
		e.Cal = domain.FrameID(cal)
		e.Rank = int(rank)
		ret.Entries = append(ret.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.Cached{}, dberr.Classify(xe.Wrap(err))
	}
	domain.SortEntries(ret.Entries)

	if err := tx.Commit(ctx); err != nil {
		return domain.Cached{}, dberr.Classify(xe.Wrap(err))
	}
	return ret, nil
}

func (m *pgCache) Invalidate(ctx context.Context, targets ...domain.FrameID) error {
	if len(targets) == 0 {
		return nil
	}
	ids := utils.Map(targets, func(t domain.FrameID) int64 { return int64(t) })

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `delete from "calibration_cache_state" where "target_id" = any($1::bigint[])`, ids,
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	if _, err := tx.Exec(
		ctx, `delete from "calibration_cache" where "target_id" = any($1::bigint[])`, ids,
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}

func (m *pgCache) Drop(ctx context.Context) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	if _, err := conn.Exec(
		ctx, `truncate table "calibration_cache", "calibration_cache_state"`,
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}
