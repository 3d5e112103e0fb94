package domain

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

// Value is a nullable descriptor value.
//
// The zero value is null.
type Value struct {
	kind  valueKind
	text  string
	num   float64
	flag  bool
	stamp time.Time
}

type valueKind int

const (
	nullValue valueKind = iota
	textValue
	numberValue
	flagValue
	timeValue
)

func Null() Value { return Value{} }

func Text(s string) Value { return Value{kind: textValue, text: s} }

func Number(f float64) Value { return Value{kind: numberValue, num: f} }

func Bool(b bool) Value { return Value{kind: flagValue, flag: b} }

func Time(t time.Time) Value { return Value{kind: timeValue, stamp: t} }

// TextOrNull returns Null for nil, otherwise Text(*s).
func TextOrNull(s *string) Value {
	if s == nil {
		return Null()
	}
	return Text(*s)
}

func NumberOrNull(f *float64) Value {
	if f == nil {
		return Null()
	}
	return Number(*f)
}

func BoolOrNull(b *bool) Value {
	if b == nil {
		return Null()
	}
	return Bool(*b)
}

func TimeOrNull(t *time.Time) Value {
	if t == nil {
		return Null()
	}
	return Time(*t)
}

func (v Value) IsNull() bool { return v.kind == nullValue }

func (v Value) Text() (string, bool) {
	return v.text, v.kind == textValue
}

func (v Value) Number() (float64, bool) {
	return v.num, v.kind == numberValue
}

func (v Value) Bool() (bool, bool) {
	return v.flag, v.kind == flagValue
}

func (v Value) Time() (time.Time, bool) {
	return v.stamp, v.kind == timeValue
}

// Truthy reports whether the value is set and not a zero of its kind.
func (v Value) Truthy() bool {
	switch v.kind {
	case textValue:
		return v.text != ""
	case numberValue:
		return v.num != 0
	case flagValue:
		return v.flag
	case timeValue:
		return !v.stamp.IsZero()
	default:
		return false
	}
}

// Fits reports whether v can be stored in a column of the kind. Null fits any.
func (v Value) Fits(k field.Kind) bool {
	switch v.kind {
	case nullValue:
		return true
	case textValue:
		return k == field.Text
	case numberValue:
		return k == field.Number
	case flagValue:
		return k == field.Flag
	case timeValue:
		return k == field.Time
	default:
		return false
	}
}

// Equal compares values. Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case nullValue:
		return true
	case textValue:
		return v.text == o.text
	case numberValue:
		return v.num == o.num
	case flagValue:
		return v.flag == o.flag
	case timeValue:
		return v.stamp.Equal(o.stamp)
	default:
		return false
	}
}

// Compare orders two non-null values of the same kind.
//
// ok is false when they are not comparable.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	if v.kind != o.kind {
		return 0, false
	}
	switch v.kind {
	case textValue:
		switch {
		case v.text < o.text:
			return -1, true
		case v.text > o.text:
			return 1, true
		}
		return 0, true
	case numberValue:
		switch {
		case v.num < o.num:
			return -1, true
		case v.num > o.num:
			return 1, true
		}
		return 0, true
	case flagValue:
		switch {
		case v.flag == o.flag:
			return 0, true
		case !v.flag:
			return -1, true
		}
		return 1, true
	case timeValue:
		return v.stamp.Compare(o.stamp), true
	default:
		return 0, false
	}
}

// Interface returns the value as a query argument: nil, string, float64, bool or time.Time.
func (v Value) Interface() any {
	switch v.kind {
	case textValue:
		return v.text
	case numberValue:
		return v.num
	case flagValue:
		return v.flag
	case timeValue:
		return v.stamp
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case textValue:
		return strconv.Quote(v.text)
	case numberValue:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case flagValue:
		return strconv.FormatBool(v.flag)
	case timeValue:
		return v.stamp.Format(time.RFC3339Nano)
	default:
		return "null"
	}
}

// ValueOf converts a Go value into Value.
//
// Supported types are nil, strings, bools, time.Time, integers and floats,
// pointers to some of them and types defined on them.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case string:
		return Text(v), nil
	case *string:
		return TextOrNull(v), nil
	case bool:
		return Bool(v), nil
	case *bool:
		return BoolOrNull(v), nil
	case float64:
		return Number(v), nil
	case *float64:
		return NumberOrNull(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case time.Time:
		return Time(v), nil
	case *time.Time:
		return TimeOrNull(v), nil
	}

	// named types, like ObservationType
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	}
	return Null(), fmt.Errorf("unsupported descriptor value type: %T", x)
}
