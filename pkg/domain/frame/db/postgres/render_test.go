package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/cmp"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/query"
)

func TestRenderConstraint(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, testcase := range map[string]struct {
		constraint query.Constraint
		sql        string
		args       []any
	}{
		"equality": {
			constraint: query.Constraint{Field: field.FilterName, Op: query.OpEq, Values: []domain.Value{domain.Text("g")}},
			sql:        `f."filter_name" = $1::text`,
			args:       []any{"g"},
		},
		"equality with null": {
			constraint: query.Constraint{Field: field.FilterName, Op: query.OpEq, Values: []domain.Value{domain.Null()}},
			sql:        `f."filter_name" is null`,
		},
		"distinct from": {
			constraint: query.Constraint{Field: field.QAState, Op: query.OpNotEq, Values: []domain.Value{domain.Text("Fail")}},
			sql:        `f."qa_state" is distinct from $1::text`,
			args:       []any{"Fail"},
		},
		"between": {
			constraint: query.Constraint{Field: field.UTDateTime, Op: query.OpBetween, Values: []domain.Value{domain.Time(t0), domain.Time(t0.Add(time.Hour))}},
			sql:        `f."ut_datetime" between $1::timestamptz and $2::timestamptz`,
			args:       []any{t0, t0.Add(time.Hour)},
		},
		"in": {
			constraint: query.Constraint{Field: field.ObservationClass, Op: query.OpIn, Values: []domain.Value{domain.Text("partnerCal"), domain.Text("progCal")}},
			sql:        `f."observation_class" in ($1::text, $2::text)`,
			args:       []any{"partnerCal", "progCal"},
		},
		"has type": {
			constraint: query.Constraint{Op: query.OpHasType, Values: []domain.Value{domain.Text("MOS")}},
			sql:        `$1::text = any(f."types")`,
			args:       []any{"MOS"},
		},
		"or": {
			constraint: query.Constraint{Op: query.OpOr, Any: []query.Constraint{
				{Field: field.GcalLamp, Op: query.OpEq, Values: []domain.Value{domain.Text("IRhigh")}},
				{Field: field.GcalLamp, Op: query.OpLike, Values: []domain.Value{domain.Text("QH%")}},
			}},
			sql:  `(f."gcal_lamp" = $1::text or f."gcal_lamp" like $2::text)`,
			args: []any{"IRhigh", "QH%"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			r := &renderer{}
			actual := r.constraint("f", testcase.constraint)
			if actual != testcase.sql {
				t.Errorf("sql: (actual, expected) = (%s, %s)", actual, testcase.sql)
			}
			if !cmp.SliceEqWith(r.args, testcase.args, func(a, b any) bool {
				if ta, ok := a.(time.Time); ok {
					tb, ok := b.(time.Time)
					return ok && ta.Equal(tb)
				}
				return a == b
			}) {
				t.Errorf("args: (actual, expected) = (%v, %v)", r.args, testcase.args)
			}
		})
	}
}

func TestSelectFrames(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	q := query.Query{
		Exclude: 7,
		Header: []query.Constraint{
			{Field: field.ObservationType, Op: query.OpEq, Values: []domain.Value{domain.Text("BIAS")}},
		},
		Detail: []query.Constraint{
			{Field: field.DetectorXBin, Op: query.OpEq, Values: []domain.Value{domain.Number(2)}},
			{Field: field.GainSetting, Op: query.OpEq, Values: []domain.Value{domain.Text("low")}},
		},
		Orders: []query.Order{
			{Kind: query.OrderTimeDistance, At: t0},
			{Kind: query.OrderReduction, ProcessedFirst: true},
			{Kind: query.OrderID},
		},
		Limit: 5,
	}

	sql, args := selectFrames(q)

	for _, fragment := range []string{
		`from "frame" f where f."canonical" and f."id" <> $1::bigint`,
		`f."observation_type" = $2::text`,
		`exists (select 1 from "frame_detail" d where d."frame_id" = f."id" and d."detector_x_bin" = $3::double precision and d."gain_setting" = $4::text)`,
		`order by abs(extract(epoch from (f."ut_datetime" - $5::timestamptz))) asc nulls last, coalesce(f."reduction" = 'RAW', false) asc, f."id" asc`,
		`limit $6`,
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("missing %q in\n%s", fragment, sql)
		}
	}
	if len(args) != 6 {
		t.Fatalf("args: %v", args)
	}
	if args[0] != int64(7) || args[1] != "BIAS" || args[2] != float64(2) || args[3] != "low" || args[5] != 5 {
		t.Errorf("args: %v", args)
	}
}

func TestSelectFrames_WithoutDetail(t *testing.T) {
	sql, _ := selectFrames(query.Query{Limit: 1})
	if strings.Contains(sql, "frame_detail") {
		t.Errorf("detail should not be joined: %s", sql)
	}
}
