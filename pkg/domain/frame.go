package domain

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

type FrameID int64

func (id FrameID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Record holds descriptor values of one header or detail row.
type Record map[field.Field]Value

// Get returns the value of the field, or null when missing.
func (r Record) Get(f field.Field) Value {
	if r == nil {
		return Null()
	}
	return r[f]
}

// Frame is an archived observation file together with its descriptors.
type Frame struct {
	ID        FrameID
	Filename  string
	Canonical bool
	EntryTime time.Time

	// astrodata type tags, like "MOS" or "PROCESSED_SCIENCE".
	Types []string

	Header Record

	// one per arm for bundled instruments, at most one otherwise.
	Details []Record
}

func (f Frame) Get(fld field.Field) Value {
	return f.Header.Get(fld)
}

func (f Frame) Instrument() string {
	s, _ := f.Header.Get(field.Instrument).Text()
	return s
}

func (f Frame) DataLabel() string {
	s, _ := f.Header.Get(field.DataLabel).Text()
	return s
}

func (f Frame) UTDateTime() (time.Time, bool) {
	return f.Header.Get(field.UTDateTime).Time()
}

func (f Frame) QAState() QAState {
	s, _ := f.Header.Get(field.QAState).Text()
	return QAState(s)
}

func (f Frame) Reduction() Reduction {
	s, _ := f.Header.Get(field.Reduction).Text()
	return Reduction(s)
}

func (f Frame) HasType(t string) bool {
	return slices.Contains(f.Types, t)
}

// IsBundle reports whether the frame holds more than one arm.
func (f Frame) IsBundle() bool {
	return len(f.Details) > 1
}

// Eligible reports whether the frame is a target calibrations are associated to.
func (f Frame) Eligible() bool {
	if !f.Canonical || f.QAState() == QAFail || f.Instrument() == "" {
		return false
	}
	_, ok := f.UTDateTime()
	return ok
}

// Descriptors projects the header and detail records into a descriptor set.
//
// With more than one detail record, detail fields become PerArm keyed by the
// record's arm. Detail records of a bundle must carry distinct arms.
func (f Frame) Descriptors() (Descriptors, error) {
	d := Descriptors{}
	for k, v := range f.Header {
		d[k] = Scalar{Value: v}
	}

	switch len(f.Details) {
	case 0:
		return d, nil
	case 1:
		for k, v := range f.Details[0] {
			if k.Table() == field.Detail || k.OverridableByArm() {
				d[k] = Scalar{Value: v}
			}
		}
		return d, nil
	}

	arms := make([]Arm, 0, len(f.Details))
	byArm := map[Arm]Record{}
	for _, rec := range f.Details {
		a, ok := rec.Get(field.Arm).Text()
		if !ok || a == "" {
			return nil, fmt.Errorf("%w: frame %s has a detail without arm", ErrBundleMalformed, f.ID)
		}
		if _, dup := byArm[Arm(a)]; dup {
			return nil, fmt.Errorf("%w: frame %s has arm %q twice", ErrBundleMalformed, f.ID, a)
		}
		byArm[Arm(a)] = rec
		arms = append(arms, Arm(a))
	}
	sort.Slice(arms, func(i, j int) bool { return arms[i] < arms[j] })

	cols := field.DetailColumns()
	for _, c := range cols {
		pa := PerArm{}
		seen := false
		for _, a := range arms {
			v, ok := byArm[a][c]
			if ok {
				seen = true
			}
			pa[a] = v
		}
		if seen || c == field.Arm {
			d[c] = pa
		}
	}
	return d, nil
}
