package query

import (
	"context"
	"slices"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

// Query is a resolved calibration lookup.
//
// Only canonical frames are considered, and the target itself is never a
// calibration of its own.
type Query struct {
	Exclude domain.FrameID

	// constraints on the frame.
	Header []Constraint

	// constraints which must hold together on one detail record.
	Detail []Constraint

	Orders []Order
	Limit  int
}

// Backend runs queries on frames.
type Backend interface {
	Select(ctx context.Context, q Query) ([]domain.Frame, error)
}

type headerRow struct{ f domain.Frame }

func (r headerRow) Get(f field.Field) domain.Value { return r.f.Get(f) }
func (r headerRow) HasType(t string) bool          { return r.f.HasType(t) }

type detailRow struct {
	f   domain.Frame
	rec domain.Record
}

func (r detailRow) Get(f field.Field) domain.Value { return r.rec.Get(f) }
func (r detailRow) HasType(t string) bool          { return r.f.HasType(t) }

// Match reports whether the frame satisfies the query's constraints.
func (q Query) Match(f domain.Frame) bool {
	if !f.Canonical || f.ID == q.Exclude {
		return false
	}
	for _, c := range q.Header {
		if !c.Holds(headerRow{f: f}) {
			return false
		}
	}
	if len(q.Detail) == 0 {
		return true
	}
	for _, rec := range f.Details {
		all := true
		for _, c := range q.Detail {
			if !c.Holds(detailRow{f: f, rec: rec}) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Compare orders two frames as the query does.
func (q Query) Compare(a, b domain.Frame) int {
	return Compare(q.Orders, a, b)
}

// Apply filters, orders and limits frames in memory.
func (q Query) Apply(frames []domain.Frame) []domain.Frame {
	if q.Limit <= 0 {
		return []domain.Frame{}
	}
	ret := []domain.Frame{}
	for _, f := range frames {
		if q.Match(f) {
			ret = append(ret, f)
		}
	}
	slices.SortStableFunc(ret, q.Compare)
	if len(ret) > q.Limit {
		ret = ret[:q.Limit]
	}
	return ret
}
