package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	kpool "github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool"
	"github.com/fitsarchive/calassoc/pkg/domain"
	dberr "github.com/fitsarchive/calassoc/pkg/domain/errors/dberrors/postgres"
	"github.com/fitsarchive/calassoc/pkg/domain/frame"
	kframe "github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	xe "github.com/fitsarchive/calassoc/pkg/errors"
	"github.com/fitsarchive/calassoc/pkg/query"
)

type pgFrame struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kframe.FrameInterface {
	return &pgFrame{pool: pool}
}

func (m *pgFrame) Select(ctx context.Context, q query.Query) ([]domain.Frame, error) {
	if q.Limit <= 0 {
		return []domain.Frame{}, nil
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	sql, args := selectFrames(q)
	frames, err := queryFrames(ctx, conn, sql, args...)
	if err != nil {
		return nil, dberr.Classify(xe.WrapWithNote(sql, err))
	}
	if err := attachDetails(ctx, conn, frames); err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	return frames, nil
}

func queryFrames(ctx context.Context, conn kpool.Queryer, sql string, args ...any) ([]domain.Frame, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frames := []domain.Frame{}
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// attachDetails loads detail records into frames.
func attachDetails(ctx context.Context, conn kpool.Queryer, frames []domain.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	ids := make([]int64, len(frames))
	index := map[domain.FrameID]int{}
	for i, f := range frames {
		ids[i] = int64(f.ID)
		index[f.ID] = i
	}

	rows, err := conn.Query(
		ctx,
		fmt.Sprintf(
			`select %s from "frame_detail" d where d."frame_id" = any($1) order by d."frame_id", d."arm"`,
			detailColumns("d"),
		),
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		id, rec, err := scanDetail(rows)
		if err != nil {
			return err
		}
		i := index[id]
		frames[i].Details = append(frames[i].Details, rec)
	}
	return rows.Err()
}

func (m *pgFrame) Get(ctx context.Context, id domain.FrameID) (domain.Frame, error) {
	frames, err := m.GetMany(ctx, []domain.FrameID{id})
	if err != nil {
		return domain.Frame{}, err
	}
	if len(frames) == 0 {
		return domain.Frame{}, dberr.Missing{Table: "frame", Identity: id.String()}
	}
	return frames[0], nil
}

func (m *pgFrame) GetMany(ctx context.Context, ids []domain.FrameID) ([]domain.Frame, error) {
	if len(ids) == 0 {
		return []domain.Frame{}, nil
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	args := make([]int64, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	frames, err := queryFrames(
		ctx, conn,
		fmt.Sprintf(`select %s from "frame" f where f."id" = any($1)`, headerColumns("f")),
		args,
	)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	if err := attachDetails(ctx, conn, frames); err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}

	byID := map[domain.FrameID]domain.Frame{}
	for _, f := range frames {
		byID[f.ID] = f
	}
	ret := make([]domain.Frame, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			ret = append(ret, f)
		}
	}
	return ret, nil
}

func (m *pgFrame) Find(ctx context.Context, selection string) ([]domain.Frame, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	id := int64(-1)
	if n, err := strconv.ParseInt(selection, 10, 64); err == nil {
		id = n
	}

	frames, err := queryFrames(
		ctx, conn,
		fmt.Sprintf(
			`select %s from "frame" f
			where f."canonical"
				and (f."filename" = any($1) or f."data_label" = $2 or f."id" = $3)
			order by f."filename" desc`,
			headerColumns("f"),
		),
		frame.Filenames(selection), selection, id,
	)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	if err := attachDetails(ctx, conn, frames); err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	return frames, nil
}

func (m *pgFrame) Eligible(ctx context.Context, filter kframe.EligibleFilter) ([]kframe.FrameRef, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()

	where := []string{
		`"canonical"`,
		`"qa_state" is distinct from 'Fail'`,
		`"instrument" is not null`,
		`"ut_datetime" is not null`,
	}
	args := []any{}
	if filter.Instrument != "" {
		args = append(args, filter.Instrument)
		where = append(where, fmt.Sprintf(`"instrument" = $%d`, len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf(`"ut_datetime" >= $%d`, len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		where = append(where, fmt.Sprintf(`"ut_datetime" < $%d`, len(args)))
	}

	rows, err := conn.Query(
		ctx,
		`select "id", "filename" from "frame" where `+strings.Join(where, " and ")+` order by "id"`,
		args...,
	)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	defer rows.Close()

	ret := []kframe.FrameRef{}
	for rows.Next() {
		var id int64
		var filename string
		if err := rows.Scan(&id, &filename); err != nil {
			return nil, dberr.Classify(xe.Wrap(err))
		}
		ret = append(ret, kframe.FrameRef{ID: domain.FrameID(id), Filename: filename})
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}
	return ret, nil
}
