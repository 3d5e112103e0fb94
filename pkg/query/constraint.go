package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

type Op int

const (
	// equality. Comparing with null matches null only.
	OpEq Op = iota
	// "is distinct from": null differs from any value.
	OpNotEq
	OpIn
	// SQL LIKE pattern, with '%' and '_' and backslash escapes.
	OpLike
	// inclusive range, Values[0] <= x <= Values[1]
	OpBetween
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	// the frame has the type tag in Values[0]. Field is not used.
	OpHasType
	// any of Any holds.
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpNotEq:
		return "noteq"
	case OpIn:
		return "in"
	case OpLike:
		return "like"
	case OpBetween:
		return "between"
	case OpLess:
		return "lt"
	case OpLessEq:
		return "le"
	case OpGreater:
		return "gt"
	case OpGreaterEq:
		return "ge"
	case OpHasType:
		return "hastype"
	case OpOr:
		return "or"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Constraint is a resolved condition on a frame or one of its detail records.
type Constraint struct {
	Field  field.Field
	Op     Op
	Values []domain.Value
	Any    []Constraint

	err error
}

func broken(err error) Constraint {
	return Constraint{err: err}
}

// Table is where the constraint is evaluated.
func (c Constraint) Table() field.Table {
	switch c.Op {
	case OpHasType:
		return field.Header
	case OpOr:
		if len(c.Any) == 0 {
			return field.Header
		}
		return c.Any[0].Table()
	default:
		return c.Field.Table()
	}
}

// Validate checks that the constraint is well-formed.
//
// Unknown fields, values of wrong kind and disjunctions over both tables are
// configuration errors.
func (c Constraint) Validate() error {
	if c.err != nil {
		return c.err
	}
	switch c.Op {
	case OpHasType:
		if len(c.Values) != 1 {
			return fmt.Errorf("hastype takes 1 value, got %d", len(c.Values))
		}
		if _, ok := c.Values[0].Text(); !ok {
			return fmt.Errorf("hastype takes text, got %s", c.Values[0])
		}
		return nil
	case OpOr:
		if len(c.Any) == 0 {
			return fmt.Errorf("or without operands")
		}
		t := c.Any[0].Table()
		for _, a := range c.Any {
			if err := a.Validate(); err != nil {
				return err
			}
			if a.Table() != t {
				return fmt.Errorf("or over %s and %s", t, a.Table())
			}
		}
		return nil
	}

	if !c.Field.IsKnown() {
		return fmt.Errorf("unknown descriptor: %q", c.Field)
	}
	want := map[Op]int{
		OpEq: 1, OpNotEq: 1, OpLike: 1, OpBetween: 2,
		OpLess: 1, OpLessEq: 1, OpGreater: 1, OpGreaterEq: 1,
	}
	if n, ok := want[c.Op]; ok && len(c.Values) != n {
		return fmt.Errorf("%s on %s takes %d value(s), got %d", c.Op, c.Field, n, len(c.Values))
	}
	if c.Op == OpIn && len(c.Values) == 0 {
		return fmt.Errorf("in on %s without values", c.Field)
	}
	for _, v := range c.Values {
		if !v.Fits(c.Field.Kind()) {
			return fmt.Errorf("%s is %s, but compared with %s", c.Field, c.Field.Kind(), v)
		}
		if v.IsNull() && c.Op != OpEq && c.Op != OpNotEq {
			return fmt.Errorf("%s on %s with null", c.Op, c.Field)
		}
	}
	if c.Op == OpLike && c.Field.Kind() != field.Text {
		return fmt.Errorf("like on %s field %s", c.Field.Kind(), c.Field)
	}
	return nil
}

// Row is what a constraint is evaluated against.
type Row interface {
	Get(field.Field) domain.Value
	HasType(string) bool
}

// Holds evaluates the constraint with SQL semantics: comparisons with null
// are false, except for OpEq with null and OpNotEq.
func (c Constraint) Holds(r Row) bool {
	switch c.Op {
	case OpHasType:
		t, _ := c.Values[0].Text()
		return r.HasType(t)
	case OpOr:
		for _, a := range c.Any {
			if a.Holds(r) {
				return true
			}
		}
		return false
	}

	v := r.Get(c.Field)
	switch c.Op {
	case OpEq:
		if c.Values[0].IsNull() {
			return v.IsNull()
		}
		return !v.IsNull() && v.Equal(c.Values[0])
	case OpNotEq:
		return !v.Equal(c.Values[0])
	case OpIn:
		for _, w := range c.Values {
			if !v.IsNull() && v.Equal(w) {
				return true
			}
		}
		return false
	case OpLike:
		s, ok := v.Text()
		if !ok {
			return false
		}
		p, _ := c.Values[0].Text()
		return likeRegexp(p).MatchString(s)
	}

	if v.IsNull() {
		return false
	}
	cmp := func(w domain.Value) (int, bool) { return v.Compare(w) }
	switch c.Op {
	case OpBetween:
		lo, ok1 := cmp(c.Values[0])
		hi, ok2 := cmp(c.Values[1])
		return ok1 && ok2 && lo >= 0 && hi <= 0
	case OpLess:
		x, ok := cmp(c.Values[0])
		return ok && x < 0
	case OpLessEq:
		x, ok := cmp(c.Values[0])
		return ok && x <= 0
	case OpGreater:
		x, ok := cmp(c.Values[0])
		return ok && x > 0
	case OpGreaterEq:
		x, ok := cmp(c.Values[0])
		return ok && x >= 0
	}
	return false
}

func likeRegexp(pattern string) *regexp.Regexp {
	sb := strings.Builder{}
	sb.WriteString(`^(?s)`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(`.*`)
		case r == '_':
			sb.WriteString(`.`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString(`$`)
	return regexp.MustCompile(sb.String())
}

// EscapeLike escapes LIKE wildcards in s.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (c Constraint) String() string {
	switch c.Op {
	case OpHasType:
		return fmt.Sprintf("hastype(%s)", c.Values[0])
	case OpOr:
		parts := make([]string, len(c.Any))
		for i, a := range c.Any {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, " or ") + ")"
	default:
		vs := make([]string, len(c.Values))
		for i, v := range c.Values {
			vs[i] = v.String()
		}
		return fmt.Sprintf("%s %s [%s]", c.Field, c.Op, strings.Join(vs, ", "))
	}
}
