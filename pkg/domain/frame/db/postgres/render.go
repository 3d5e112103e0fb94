package postgres

import (
	"fmt"
	"strings"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/query"
)

// renderer builds SQL with positional arguments.
type renderer struct {
	args []any
}

func (r *renderer) arg(v any) string {
	r.args = append(r.args, v)
	return fmt.Sprintf("$%d", len(r.args))
}

func column(alias string, f field.Field) string {
	return fmt.Sprintf(`%s."%s"`, alias, f.Column())
}

func sqlType(k field.Kind) string {
	switch k {
	case field.Number:
		return "double precision"
	case field.Flag:
		return "boolean"
	case field.Time:
		return "timestamptz"
	default:
		return "text"
	}
}

// typed argument placeholder.
func (r *renderer) value(f field.Field, v domain.Value) string {
	return fmt.Sprintf("%s::%s", r.arg(v.Interface()), sqlType(f.Kind()))
}

func (r *renderer) constraint(alias string, c query.Constraint) string {
	switch c.Op {
	case query.OpHasType:
		t, _ := c.Values[0].Text()
		return fmt.Sprintf(`%s::text = any(%s."types")`, r.arg(t), alias)
	case query.OpOr:
		parts := make([]string, len(c.Any))
		for i, a := range c.Any {
			parts[i] = r.constraint(alias, a)
		}
		return "(" + strings.Join(parts, " or ") + ")"
	}

	col := column(alias, c.Field)
	switch c.Op {
	case query.OpEq:
		if c.Values[0].IsNull() {
			return col + " is null"
		}
		return fmt.Sprintf("%s = %s", col, r.value(c.Field, c.Values[0]))
	case query.OpNotEq:
		if c.Values[0].IsNull() {
			return col + " is not null"
		}
		return fmt.Sprintf("%s is distinct from %s", col, r.value(c.Field, c.Values[0]))
	case query.OpIn:
		ps := make([]string, len(c.Values))
		for i, v := range c.Values {
			ps[i] = r.value(c.Field, v)
		}
		return fmt.Sprintf("%s in (%s)", col, strings.Join(ps, ", "))
	case query.OpLike:
		return fmt.Sprintf("%s like %s", col, r.value(c.Field, c.Values[0]))
	case query.OpBetween:
		return fmt.Sprintf(
			"%s between %s and %s",
			col, r.value(c.Field, c.Values[0]), r.value(c.Field, c.Values[1]),
		)
	case query.OpLess:
		return fmt.Sprintf("%s < %s", col, r.value(c.Field, c.Values[0]))
	case query.OpLessEq:
		return fmt.Sprintf("%s <= %s", col, r.value(c.Field, c.Values[0]))
	case query.OpGreater:
		return fmt.Sprintf("%s > %s", col, r.value(c.Field, c.Values[0]))
	case query.OpGreaterEq:
		return fmt.Sprintf("%s >= %s", col, r.value(c.Field, c.Values[0]))
	}
	// Validate rejects others.
	return "false"
}

func (r *renderer) order(alias string, o query.Order) string {
	switch o.Kind {
	case query.OrderPreferEqual:
		col := column(alias, o.Field)
		if o.Value.IsNull() {
			return fmt.Sprintf("(%s is null) desc", col)
		}
		return fmt.Sprintf("coalesce(%s = %s, false) desc", col, r.value(o.Field, o.Value))
	case query.OrderTimeDistance:
		return fmt.Sprintf(
			"abs(extract(epoch from (%s - %s::timestamptz))) asc nulls last",
			column(alias, field.UTDateTime), r.arg(o.At),
		)
	case query.OrderScore:
		score := fmt.Sprintf(
			"abs(extract(epoch from (%s - %s::timestamptz))) / %s::double precision",
			column(alias, field.UTDateTime), r.arg(o.At), r.arg(o.TimeRange.Seconds()),
		)
		if wl, ok := o.Wavelength.Number(); ok && o.WavelengthRange > 0 {
			score += fmt.Sprintf(
				" + abs(%s - %s::double precision) / %s::double precision",
				column(alias, field.CentralWavelength), r.arg(wl), r.arg(o.WavelengthRange),
			)
		}
		return fmt.Sprintf("(%s) asc nulls last", score)
	case query.OrderReduction:
		dir := "asc"
		if !o.ProcessedFirst {
			dir = "desc"
		}
		return fmt.Sprintf(
			"coalesce(%s = 'RAW', false) %s", column(alias, field.Reduction), dir,
		)
	default:
		return fmt.Sprintf(`%s."id" asc`, alias)
	}
}

// selectFrames renders a lookup into SQL selecting frame columns.
func selectFrames(q query.Query) (string, []any) {
	r := &renderer{}
	where := []string{
		`f."canonical"`,
		fmt.Sprintf(`f."id" <> %s::bigint`, r.arg(int64(q.Exclude))),
	}
	for _, c := range q.Header {
		where = append(where, r.constraint("f", c))
	}
	if len(q.Detail) != 0 {
		sub := []string{`d."frame_id" = f."id"`}
		for _, c := range q.Detail {
			sub = append(sub, r.constraint("d", c))
		}
		where = append(where, fmt.Sprintf(
			`exists (select 1 from "frame_detail" d where %s)`,
			strings.Join(sub, " and "),
		))
	}

	orders := []string{}
	byID := false
	for _, o := range q.Orders {
		orders = append(orders, r.order("f", o))
		byID = byID || o.Kind == query.OrderID
	}
	if !byID {
		orders = append(orders, `f."id" asc`)
	}

	sql := fmt.Sprintf(
		`select %s from "frame" f where %s order by %s limit %s`,
		headerColumns("f"),
		strings.Join(where, " and "),
		strings.Join(orders, ", "),
		r.arg(q.Limit),
	)
	return sql, r.args
}

func headerColumns(alias string) string {
	cols := []string{
		alias + `."id"`, alias + `."filename"`, alias + `."canonical"`,
		alias + `."entrytime"`, alias + `."types"`,
	}
	for _, f := range field.In(field.Header) {
		cols = append(cols, column(alias, f))
	}
	return strings.Join(cols, ", ")
}

func detailColumns(alias string) string {
	cols := []string{alias + `."frame_id"`}
	for _, f := range field.DetailColumns() {
		cols = append(cols, column(alias, f))
	}
	return strings.Join(cols, ", ")
}
