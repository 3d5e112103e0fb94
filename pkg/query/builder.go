package query

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

// Chain composes a calibration lookup for a target.
//
// Every method returns a new Chain and leaves the receiver as it is.
// Composition errors are reported by Resolve and All.
type Chain interface {
	// Reduction restricts calibrations to the processing state.
	Reduction(r domain.Reduction) Chain

	// Raw restricts calibrations to raw frames. Same as Reduction(domain.Raw).
	Raw() Chain

	ObservationType(o domain.ObservationType) Chain
	ObservationClass(c domain.ObservationClass) Chain
	Spectroscopy(b bool) Chain

	// Object restricts calibrations to the object name.
	Object(name string) Chain

	// MatchDescriptors requires calibrations to have the target's values of
	// the fields. A null value of the target matches null.
	MatchDescriptors(fields ...field.Field) Chain

	// Tolerance requires calibrations' f within delta of the target's,
	// inclusive. It is ignored when the target's f is null.
	Tolerance(f field.Field, delta float64) Chain

	// MaxInterval requires calibrations observed within d of the target, inclusive.
	MaxInterval(d time.Duration) Chain

	AddFilters(filters ...Filter) Chain

	// IncludeEngineering lets engineering frames be calibrations.
	// Engineering targets let them without asking.
	IncludeEngineering() Chain

	// PreferEqual sorts calibrations having the target's value of f first.
	PreferEqual(f field.Field) Chain

	// OrderByScore sorts calibrations by a score of time and wavelength
	// distances, normalized by the ranges, in place of time distance alone.
	OrderByScore(timeRange time.Duration, wavelengthRange float64) Chain

	// Resolve returns the queries the chain runs.
	Resolve(howmany int) ([]Query, error)

	// All returns up to howmany calibrations, best first.
	All(ctx context.Context, howmany int) ([]domain.Frame, error)
}

type scoring struct {
	timeRange       time.Duration
	wavelengthRange float64
}

// Builder is a Chain which runs a single query on a Backend.
type Builder struct {
	backend            Backend
	target             domain.Descriptors
	exclude            domain.FrameID
	filters            []Filter
	prefer             []field.Field
	score              *scoring
	processedFirst     bool
	includeEngineering bool
	err                error
}

var _ Chain = Builder{}

// New starts a lookup for the target frame.
//
// The target must be scalar. Use a bundle adapter for bundled frames.
func New(backend Backend, target domain.Descriptors, self domain.FrameID) Builder {
	b := Builder{
		backend:        backend,
		target:         target,
		exclude:        self,
		processedFirst: true,
	}
	if !target.IsScalar() {
		b.err = fmt.Errorf("per-arm descriptors are given to a single query")
	}
	return b
}

func (b Builder) with(modify func(*Builder)) Chain {
	b.filters = slices.Clone(b.filters)
	b.prefer = slices.Clone(b.prefer)
	if b.err == nil {
		modify(&b)
	}
	return b
}

func (b Builder) fail(err error) Chain {
	return b.with(func(b *Builder) { b.err = err })
}

func (b Builder) Reduction(r domain.Reduction) Chain {
	if !r.IsKnown() {
		return b.fail(fmt.Errorf("%w: reduction %q", domain.ErrUnknownEnum, r))
	}
	return b.with(func(b *Builder) {
		b.filters = append(b.filters, Eq(field.Reduction, r))
		b.processedFirst = r != domain.Raw
	})
}

func (b Builder) Raw() Chain {
	return b.Reduction(domain.Raw)
}

func (b Builder) ObservationType(o domain.ObservationType) Chain {
	if !o.IsKnown() {
		return b.fail(fmt.Errorf("%w: observation type %q", domain.ErrUnknownEnum, o))
	}
	return b.AddFilters(Eq(field.ObservationType, o))
}

func (b Builder) ObservationClass(c domain.ObservationClass) Chain {
	if !c.IsKnown() {
		return b.fail(fmt.Errorf("%w: observation class %q", domain.ErrUnknownEnum, c))
	}
	return b.AddFilters(Eq(field.ObservationClass, c))
}

func (b Builder) Spectroscopy(s bool) Chain {
	return b.AddFilters(Eq(field.Spectroscopy, s))
}

func (b Builder) Object(name string) Chain {
	return b.AddFilters(Eq(field.Object, name))
}

func (b Builder) MatchDescriptors(fields ...field.Field) Chain {
	fs := make([]Filter, 0, len(fields))
	for _, f := range fields {
		if !f.IsKnown() {
			return b.fail(fmt.Errorf("unknown descriptor: %q", f))
		}
		fs = append(fs, SameAs(f))
	}
	return b.AddFilters(fs...)
}

func (b Builder) Tolerance(f field.Field, delta float64) Chain {
	if !f.IsKnown() {
		return b.fail(fmt.Errorf("unknown descriptor: %q", f))
	}
	if f.Kind() != field.Number {
		return b.fail(fmt.Errorf("tolerance on %s field %s", f.Kind(), f))
	}
	return b.AddFilters(Within(f, delta))
}

func (b Builder) MaxInterval(d time.Duration) Chain {
	return b.AddFilters(WithinInterval(d))
}

func (b Builder) AddFilters(filters ...Filter) Chain {
	return b.with(func(b *Builder) {
		b.filters = append(b.filters, filters...)
	})
}

func (b Builder) IncludeEngineering() Chain {
	return b.with(func(b *Builder) { b.includeEngineering = true })
}

func (b Builder) PreferEqual(f field.Field) Chain {
	if !f.IsKnown() || f.Table() != field.Header {
		return b.fail(fmt.Errorf("cannot order by %q", f))
	}
	return b.with(func(b *Builder) { b.prefer = append(b.prefer, f) })
}

func (b Builder) OrderByScore(timeRange time.Duration, wavelengthRange float64) Chain {
	if timeRange <= 0 {
		return b.fail(fmt.Errorf("score needs a positive time range"))
	}
	return b.with(func(b *Builder) {
		b.score = &scoring{timeRange: timeRange, wavelengthRange: wavelengthRange}
	})
}

// Resolve builds the query against the target.
func (b Builder) Resolve(howmany int) ([]Query, error) {
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", domerr.ErrConfiguration, b.err)
	}

	base := []Filter{NotEq(field.QAState, domain.QAFail)}
	if !b.includeEngineering && !b.target.Truthy(field.Engineering) {
		base = append(base, NotEq(field.Engineering, true))
	}

	q := Query{Exclude: b.exclude, Limit: howmany}
	for _, f := range append(base, b.filters...) {
		c, ok := f(b.target)
		if !ok {
			continue
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", domerr.ErrConfiguration, err)
		}
		switch c.Table() {
		case field.Detail:
			q.Detail = append(q.Detail, c)
		default:
			q.Header = append(q.Header, c)
		}
	}

	for _, f := range b.prefer {
		q.Orders = append(q.Orders, Order{Kind: OrderPreferEqual, Field: f, Value: b.target.Get(f)})
	}
	if at, ok := b.target.Time(field.UTDateTime); ok {
		if b.score != nil {
			q.Orders = append(q.Orders, Order{
				Kind:            OrderScore,
				At:              at,
				TimeRange:       b.score.timeRange,
				Wavelength:      b.target.Get(field.CentralWavelength),
				WavelengthRange: b.score.wavelengthRange,
			})
		} else {
			q.Orders = append(q.Orders, Order{Kind: OrderTimeDistance, At: at})
		}
	}
	q.Orders = append(q.Orders,
		Order{Kind: OrderReduction, ProcessedFirst: b.processedFirst},
		Order{Kind: OrderID},
	)
	return []Query{q}, nil
}

func (b Builder) All(ctx context.Context, howmany int) ([]domain.Frame, error) {
	qs, err := b.Resolve(howmany)
	if err != nil {
		return nil, err
	}
	if howmany <= 0 {
		return []domain.Frame{}, nil
	}
	return b.backend.Select(ctx, qs[0])
}
