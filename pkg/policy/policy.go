// Package policy holds instrument calibration policies.
//
// A policy tells which caltypes apply to a target frame and how to look
// calibrations of each caltype up. Instrument packages compose lookups of
// package query, and policies are data: rules and a table of methods.
package policy

import (
	"context"
	"fmt"
	"slices"

	"github.com/fitsarchive/calassoc/pkg/bundle"
	"github.com/fitsarchive/calassoc/pkg/domain"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/fitsarchive/calassoc/pkg/query"
)

// Target is the frame calibrations are looked up for.
type Target struct {
	Frame domain.Frame
	Desc  domain.Descriptors

	backend query.Backend
}

// Query starts a lookup for the target.
//
// Bundles are looked up arm by arm.
func (t Target) Query() query.Chain {
	if t.Desc.IsBundle() {
		return bundle.New(t.backend, t.Desc, t.Frame.ID)
	}
	return query.New(t.backend, t.Desc, t.Frame.ID)
}

// HasType reports whether the target is tagged with the type.
func (t Target) HasType(typ string) bool {
	return t.Frame.HasType(typ)
}

// Method looks calibrations of a caltype up.
//
// howmany of zero or less asks for the method's default count.
type Method func(ctx context.Context, t Target, processed bool, howmany int) ([]domain.Frame, error)

// Instrument is the calibration policy of an instrument.
type Instrument struct {
	Name string

	// Match reports whether frames of the instrument name are served.
	// When nil, the name must equal Name.
	Match func(instrument string) bool

	// Bundled instruments keep a detail record per arm. Their frames
	// without detail records are malformed.
	Bundled bool

	// Rules lists caltypes applicable to the target.
	Rules func(t Target) []domain.Caltype

	// Methods are keyed by the base of caltypes. See domain.Caltype.Base.
	Methods map[domain.Caltype]Method
}

func (i *Instrument) matches(name string) bool {
	if i.Match != nil {
		return i.Match(name)
	}
	return i.Name == name
}

// Target prepares a frame for lookups.
func (i *Instrument) Target(f domain.Frame, backend query.Backend) (Target, error) {
	if i.Bundled && len(f.Details) == 0 {
		return Target{}, fmt.Errorf("%w: %s frame %s has no arm", domain.ErrBundleMalformed, i.Name, f.ID)
	}
	d, err := f.Descriptors()
	if err != nil {
		return Target{}, err
	}
	if d.IsBundle() && len(d.Arms()) == 0 {
		return Target{}, fmt.Errorf("%w: frame %s has no arm", domain.ErrBundleMalformed, f.ID)
	}
	return Target{Frame: f, Desc: d, backend: backend}, nil
}

// ApplicableCaltypes returns caltypes applicable to the target, in report
// order and without duplicates.
func (i *Instrument) ApplicableCaltypes(t Target) []domain.Caltype {
	if i.Rules == nil {
		return []domain.Caltype{}
	}
	ret := slices.Clone(i.Rules(t))
	domain.SortCaltypes(ret)
	return slices.Compact(ret)
}

// Serves reports whether the instrument has a lookup for the caltype.
func (i *Instrument) Serves(c domain.Caltype) bool {
	base, _ := c.Base()
	_, ok := i.Methods[base]
	return ok
}

// Lookup returns calibrations of the caltype for the target, best first.
func (i *Instrument) Lookup(ctx context.Context, t Target, c domain.Caltype, howmany int) ([]domain.Frame, error) {
	base, processed := c.Base()
	m, ok := i.Methods[base]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no lookup for %s", domerr.ErrConfiguration, i.Name, c)
	}
	frames, err := m(ctx, t, processed, howmany)
	if err != nil {
		return nil, err
	}
	if frames == nil {
		frames = []domain.Frame{}
	}
	return frames, nil
}

// Registry finds the policy for an instrument.
type Registry struct {
	instruments []*Instrument
}

func NewRegistry(instruments ...*Instrument) *Registry {
	return &Registry{instruments: instruments}
}

// For returns the policy of the instrument.
//
// Unknown instruments are configuration errors.
func (r *Registry) For(instrument string) (*Instrument, error) {
	for _, i := range r.instruments {
		if i.matches(instrument) {
			return i, nil
		}
	}
	return nil, fmt.Errorf("%w: no calibration policy for instrument %q", domerr.ErrConfiguration, instrument)
}

// Instruments lists names of registered policies.
func (r *Registry) Instruments() []string {
	ret := make([]string, len(r.instruments))
	for i, ins := range r.instruments {
		ret[i] = ins.Name
	}
	return ret
}
