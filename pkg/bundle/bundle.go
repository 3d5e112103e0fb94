// Package bundle looks calibrations of bundled frames up arm by arm.
//
// An Adapter stands in for a single query. Every step of a lookup is applied
// to a query of each arm, and results are merged.
package bundle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/query"
)

type Adapter struct {
	backend query.Backend
	arms    []domain.Arm
	chains  []query.Chain
	err     error
}

var _ query.Chain = &Adapter{}

// New starts a lookup for each arm of the bundled target.
func New(backend query.Backend, target domain.Descriptors, self domain.FrameID) *Adapter {
	a := &Adapter{backend: backend}
	arms := target.Arms()
	if len(arms) == 0 {
		a.err = fmt.Errorf("%w: frame %s has no arm", domain.ErrBundleMalformed, self)
		return a
	}
	for _, arm := range arms {
		proj, err := target.Project(arm)
		if err != nil {
			a.err = err
			return a
		}
		a.arms = append(a.arms, arm)
		a.chains = append(a.chains, query.New(backend, proj, self))
	}
	return a
}

// Arms returns arms the adapter queries for.
func (a *Adapter) Arms() []domain.Arm {
	return a.arms
}

func (a *Adapter) each(step func(query.Chain) query.Chain) query.Chain {
	chains := make([]query.Chain, len(a.chains))
	for i, c := range a.chains {
		chains[i] = step(c)
	}
	return &Adapter{backend: a.backend, arms: a.arms, chains: chains, err: a.err}
}

func (a *Adapter) Reduction(r domain.Reduction) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.Reduction(r) })
}

func (a *Adapter) Raw() query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.Raw() })
}

func (a *Adapter) ObservationType(o domain.ObservationType) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.ObservationType(o) })
}

func (a *Adapter) ObservationClass(cls domain.ObservationClass) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.ObservationClass(cls) })
}

func (a *Adapter) Spectroscopy(b bool) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.Spectroscopy(b) })
}

func (a *Adapter) Object(name string) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.Object(name) })
}

func (a *Adapter) MatchDescriptors(fields ...field.Field) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.MatchDescriptors(fields...) })
}

func (a *Adapter) Tolerance(f field.Field, delta float64) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.Tolerance(f, delta) })
}

func (a *Adapter) MaxInterval(d time.Duration) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.MaxInterval(d) })
}

func (a *Adapter) AddFilters(filters ...query.Filter) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.AddFilters(filters...) })
}

func (a *Adapter) IncludeEngineering() query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.IncludeEngineering() })
}

func (a *Adapter) PreferEqual(f field.Field) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.PreferEqual(f) })
}

func (a *Adapter) OrderByScore(timeRange time.Duration, wavelengthRange float64) query.Chain {
	return a.each(func(c query.Chain) query.Chain { return c.OrderByScore(timeRange, wavelengthRange) })
}

// Resolve returns a query for each arm.
func (a *Adapter) Resolve(howmany int) ([]query.Query, error) {
	if a.err != nil {
		return nil, a.err
	}
	ret := []query.Query{}
	for _, c := range a.chains {
		qs, err := c.Resolve(howmany)
		if err != nil {
			return nil, err
		}
		ret = append(ret, qs...)
	}
	return ret, nil
}

// All runs queries of arms and returns up to howmany of the union, ordered
// by time distance, processing state and id.
func (a *Adapter) All(ctx context.Context, howmany int) ([]domain.Frame, error) {
	queries, err := a.Resolve(howmany)
	if err != nil {
		return nil, err
	}
	if howmany <= 0 {
		return []domain.Frame{}, nil
	}

	results := make([][]domain.Frame, len(queries))
	eg, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		eg.Go(func() error {
			fs, err := a.backend.Select(gctx, q)
			if err != nil {
				return err
			}
			results[i] = fs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return query.Merge(queries, results, howmany), nil
}
