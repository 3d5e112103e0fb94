package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

// Arm names a spectrograph arm of a bundled frame.
type Arm string

// BundleArm is the arm value a bundled frame reports while it is not
// projected onto a single arm.
const BundleArm Arm = "bundle"

// Descriptor is either a Scalar or a PerArm value.
type Descriptor interface {
	isDescriptor()
}

type Scalar struct {
	Value Value
}

func (Scalar) isDescriptor() {}

// PerArm maps each arm of a bundle to its own value.
type PerArm map[Arm]Value

func (PerArm) isDescriptor() {}

// Descriptors is the descriptor set of a frame, as policies see it.
type Descriptors map[field.Field]Descriptor

var ErrBundleMalformed = errors.New("bundle malformed")

// Get returns the scalar value of the field.
//
// For a per-arm field, Get returns the bundle sentinel so that policies
// treat it as "not a single value". Missing fields are null.
func (d Descriptors) Get(f field.Field) Value {
	switch v := d[f].(type) {
	case Scalar:
		return v.Value
	case PerArm:
		return Text(string(BundleArm))
	default:
		return Null()
	}
}

func (d Descriptors) Text(f field.Field) string {
	s, _ := d.Get(f).Text()
	return s
}

func (d Descriptors) Number(f field.Field) (float64, bool) {
	return d.Get(f).Number()
}

// Flag returns the boolean value. ok is false when it is null or per-arm.
func (d Descriptors) Flag(f field.Field) (value bool, ok bool) {
	return d.Get(f).Bool()
}

func (d Descriptors) Time(f field.Field) (time.Time, bool) {
	return d.Get(f).Time()
}

// Truthy reports whether the field holds a scalar, non-zero value.
func (d Descriptors) Truthy(f field.Field) bool {
	return d.Get(f).Truthy()
}

func (d Descriptors) IsPerArm(f field.Field) bool {
	_, ok := d[f].(PerArm)
	return ok
}

// IsBundle reports whether the descriptors describe a bundle rather than a
// single arm.
func (d Descriptors) IsBundle() bool {
	if d.IsPerArm(field.Arm) {
		return true
	}
	arm, ok := d.Get(field.Arm).Text()
	return ok && Arm(arm) == BundleArm
}

// IsScalar reports whether no descriptor is per-arm.
func (d Descriptors) IsScalar() bool {
	for _, v := range d {
		if _, ok := v.(PerArm); ok {
			return false
		}
	}
	return true
}

// Arms returns the arms of a bundle, sorted.
func (d Descriptors) Arms() []Arm {
	pa, ok := d[field.Arm].(PerArm)
	if !ok {
		return nil
	}
	arms := make([]Arm, 0, len(pa))
	for a := range pa {
		arms = append(arms, a)
	}
	sort.Slice(arms, func(i, j int) bool { return arms[i] < arms[j] })
	return arms
}

// ArmValues returns values of the field for each arm.
//
// For a scalar field, all arms share the value.
func (d Descriptors) ArmValues(f field.Field) map[Arm]Value {
	arms := d.Arms()
	ret := make(map[Arm]Value, len(arms))
	switch v := d[f].(type) {
	case PerArm:
		for _, a := range arms {
			ret[a] = v[a]
		}
	case Scalar:
		for _, a := range arms {
			ret[a] = v.Value
		}
	default:
		for _, a := range arms {
			ret[a] = Null()
		}
	}
	return ret
}

// Project returns the scalar descriptors for one arm of a bundle.
//
// Per-arm fields take the arm's value and the arm field becomes the arm name.
func (d Descriptors) Project(arm Arm) (Descriptors, error) {
	pa, ok := d[field.Arm].(PerArm)
	if !ok {
		return nil, fmt.Errorf("%w: not a bundle", ErrBundleMalformed)
	}
	if _, ok := pa[arm]; !ok {
		return nil, fmt.Errorf("%w: no arm %q", ErrBundleMalformed, arm)
	}
	ret := make(Descriptors, len(d))
	for f, v := range d {
		switch v := v.(type) {
		case PerArm:
			ret[f] = Scalar{Value: v[arm]}
		default:
			ret[f] = v
		}
	}
	ret[field.Arm] = Scalar{Value: Text(string(arm))}
	return ret, nil
}

// Equal reports whether two descriptor sets hold the same values.
func (d Descriptors) Equal(o Descriptors) bool {
	if len(d) != len(o) {
		return false
	}
	for f, a := range d {
		b, ok := o[f]
		if !ok {
			return false
		}
		switch a := a.(type) {
		case Scalar:
			b, ok := b.(Scalar)
			if !ok || !a.Value.Equal(b.Value) {
				return false
			}
		case PerArm:
			b, ok := b.(PerArm)
			if !ok || len(a) != len(b) {
				return false
			}
			for arm, av := range a {
				bv, ok := b[arm]
				if !ok || !av.Equal(bv) {
					return false
				}
			}
		}
	}
	return true
}
