package postgres

import (
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

func scanTarget(k field.Kind) any {
	switch k {
	case field.Number:
		return &pgtype.Float8{}
	case field.Flag:
		return &pgtype.Bool{}
	case field.Time:
		return &pgtype.Timestamptz{}
	default:
		return &pgtype.Text{}
	}
}

func asValue(dst any) domain.Value {
	switch v := dst.(type) {
	case *pgtype.Text:
		if v.Status != pgtype.Present {
			return domain.Null()
		}
		return domain.Text(v.String)
	case *pgtype.Float8:
		if v.Status != pgtype.Present {
			return domain.Null()
		}
		return domain.Number(v.Float)
	case *pgtype.Bool:
		if v.Status != pgtype.Present {
			return domain.Null()
		}
		return domain.Bool(v.Bool)
	case *pgtype.Timestamptz:
		if v.Status != pgtype.Present || v.InfinityModifier != pgtype.None {
			return domain.Null()
		}
		return domain.Time(v.Time)
	default:
		return domain.Null()
	}
}

// scanFrame reads a row of headerColumns.
func scanFrame(row pgx.Row) (domain.Frame, error) {
	var id int64
	var types pgtype.TextArray
	f := domain.Frame{}

	fields := field.In(field.Header)
	dst := []any{&id, &f.Filename, &f.Canonical, &f.EntryTime, &types}
	vals := make([]any, len(fields))
	for i, fld := range fields {
		vals[i] = scanTarget(fld.Kind())
	}
	dst = append(dst, vals...)

	if err := row.Scan(dst...); err != nil {
		return domain.Frame{}, err
	}
	f.ID = domain.FrameID(id)
	if types.Status == pgtype.Present {
		if err := types.AssignTo(&f.Types); err != nil {
			return domain.Frame{}, err
		}
	}
	f.Header = domain.Record{}
	for i, fld := range fields {
		if v := asValue(vals[i]); !v.IsNull() {
			f.Header[fld] = v
		}
	}
	return f, nil
}

// scanDetail reads a row of detailColumns.
func scanDetail(row pgx.Row) (domain.FrameID, domain.Record, error) {
	var id int64
	fields := field.DetailColumns()
	vals := make([]any, len(fields))
	for i, fld := range fields {
		vals[i] = scanTarget(fld.Kind())
	}
	if err := row.Scan(append([]any{&id}, vals...)...); err != nil {
		return 0, nil, err
	}
	rec := domain.Record{}
	for i, fld := range fields {
		if v := asValue(vals[i]); !v.IsNull() {
			rec[fld] = v
		}
	}
	return domain.FrameID(id), rec, nil
}
