package query

import (
	"fmt"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

// Filter resolves into a Constraint against a (scalar) target.
//
// ok is false when the filter does not apply to the target, for example a
// tolerance around a value the target lacks.
type Filter func(target domain.Descriptors) (c Constraint, ok bool)

func fixed(c Constraint) Filter {
	return func(domain.Descriptors) (Constraint, bool) { return c, true }
}

func values(vs ...any) ([]domain.Value, error) {
	ret := make([]domain.Value, 0, len(vs))
	for _, v := range vs {
		dv, err := domain.ValueOf(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, dv)
	}
	return ret, nil
}

func op(f field.Field, o Op, vs ...any) Filter {
	dvs, err := values(vs...)
	if err != nil {
		return fixed(broken(fmt.Errorf("%s on %s: %w", o, f, err)))
	}
	return fixed(Constraint{Field: f, Op: o, Values: dvs})
}

// Eq matches frames where f equals v. A nil v matches null.
func Eq(f field.Field, v any) Filter { return op(f, OpEq, v) }

// NotEq matches frames where f is distinct from v.
func NotEq(f field.Field, v any) Filter { return op(f, OpNotEq, v) }

func In[T any](f field.Field, vs ...T) Filter {
	as := make([]any, len(vs))
	for i := range vs {
		as[i] = vs[i]
	}
	return op(f, OpIn, as...)
}

// Like matches f with a LIKE pattern.
func Like(f field.Field, pattern string) Filter { return op(f, OpLike, pattern) }

func Contains(f field.Field, s string) Filter {
	return Like(f, "%"+EscapeLike(s)+"%")
}

func StartsWith(f field.Field, s string) Filter {
	return Like(f, EscapeLike(s)+"%")
}

func EndsWith(f field.Field, s string) Filter {
	return Like(f, "%"+EscapeLike(s))
}

// Between matches lo <= f <= hi.
func Between(f field.Field, lo, hi any) Filter { return op(f, OpBetween, lo, hi) }

func Less(f field.Field, v any) Filter      { return op(f, OpLess, v) }
func LessEq(f field.Field, v any) Filter    { return op(f, OpLessEq, v) }
func Greater(f field.Field, v any) Filter   { return op(f, OpGreater, v) }
func GreaterEq(f field.Field, v any) Filter { return op(f, OpGreaterEq, v) }

// HasType matches frames tagged with the type.
func HasType(t string) Filter {
	return fixed(Constraint{Op: OpHasType, Values: []domain.Value{domain.Text(t)}})
}

// Or matches when any of filters matches. Filters not applying to the
// target are left out; when none applies, Or does not apply either.
func Or(filters ...Filter) Filter {
	return func(target domain.Descriptors) (Constraint, bool) {
		alts := []Constraint{}
		for _, f := range filters {
			c, ok := f(target)
			if ok {
				alts = append(alts, c)
			}
		}
		if len(alts) == 0 {
			return Constraint{}, false
		}
		return Constraint{Op: OpOr, Any: alts}, true
	}
}

// Relative builds a filter from the target it is resolved against.
//
// It returns nil when nothing is to be filtered.
func Relative(build func(target domain.Descriptors) Filter) Filter {
	return func(target domain.Descriptors) (Constraint, bool) {
		f := build(target)
		if f == nil {
			return Constraint{}, false
		}
		return f(target)
	}
}

// SameAs matches frames having the target's value of f, null included.
func SameAs(f field.Field) Filter {
	return func(target domain.Descriptors) (Constraint, bool) {
		return Constraint{Field: f, Op: OpEq, Values: []domain.Value{target.Get(f)}}, true
	}
}

// Within matches frames whose f is within delta of the target's, inclusive.
//
// It does not apply when the target's f is null.
func Within(f field.Field, delta float64) Filter {
	return func(target domain.Descriptors) (Constraint, bool) {
		v, ok := target.Number(f)
		if !ok {
			return Constraint{}, false
		}
		return Constraint{
			Field:  f,
			Op:     OpBetween,
			Values: []domain.Value{domain.Number(v - delta), domain.Number(v + delta)},
		}, true
	}
}

// WithinInterval matches frames observed within d of the target, inclusive.
func WithinInterval(d time.Duration) Filter {
	return func(target domain.Descriptors) (Constraint, bool) {
		t, ok := target.Time(field.UTDateTime)
		if !ok {
			return Constraint{}, false
		}
		return Constraint{
			Field:  field.UTDateTime,
			Op:     OpBetween,
			Values: []domain.Value{domain.Time(t.Add(-d)), domain.Time(t.Add(d))},
		}, true
	}
}

// Before matches frames observed strictly before the target.
func Before() Filter { return relativeTime(OpLess) }

// NotAfter matches frames observed before the target or at the same time.
func NotAfter() Filter { return relativeTime(OpLessEq) }

// After matches frames observed strictly after the target.
func After() Filter { return relativeTime(OpGreater) }

func relativeTime(o Op) Filter {
	return func(target domain.Descriptors) (Constraint, bool) {
		t, ok := target.Time(field.UTDateTime)
		if !ok {
			return Constraint{}, false
		}
		return Constraint{Field: field.UTDateTime, Op: o, Values: []domain.Value{domain.Time(t)}}, true
	}
}

// ContainsTarget matches frames whose f contains the target's f.
//
// It does not apply when the target's f is null or empty.
func ContainsTarget(f field.Field) Filter {
	return Relative(func(target domain.Descriptors) Filter {
		s := target.Text(f)
		if s == "" {
			return nil
		}
		return Contains(f, s)
	})
}
