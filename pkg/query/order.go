package query

import (
	"math"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

type OrderKind int

const (
	// frames whose Field equals Value come first.
	OrderPreferEqual OrderKind = iota
	// nearest in time to At first.
	OrderTimeDistance
	// lowest score first: |Δt|/TimeRange + |Δwavelength|/WavelengthRange.
	OrderScore
	// processed or raw frames first, by ProcessedFirst.
	OrderReduction
	// ascending frame id.
	OrderID
)

// Order is a resolved sort term.
type Order struct {
	Kind  OrderKind
	Field field.Field
	Value domain.Value

	// for OrderPreferEqual, frames equal to any of them are preferred as
	// well as ones equal to Value.
	Alternatives []domain.Value

	At              time.Time
	TimeRange       time.Duration
	Wavelength      domain.Value
	WavelengthRange float64

	ProcessedFirst bool
}

// sort key of a frame for the term. null keys sort last.
func (o Order) key(f domain.Frame) (float64, bool) {
	switch o.Kind {
	case OrderPreferEqual:
		v := f.Get(o.Field)
		if v.IsNull() {
			return 1, true
		}
		if v.Equal(o.Value) {
			return 0, true
		}
		for _, alt := range o.Alternatives {
			if v.Equal(alt) {
				return 0, true
			}
		}
		return 1, true
	case OrderTimeDistance:
		ut, ok := f.UTDateTime()
		if !ok {
			return 0, false
		}
		return math.Abs(ut.Sub(o.At).Seconds()), true
	case OrderScore:
		ut, ok := f.UTDateTime()
		if !ok {
			return 0, false
		}
		score := math.Abs(ut.Sub(o.At).Seconds()) / o.TimeRange.Seconds()
		if twl, ok := o.Wavelength.Number(); ok && o.WavelengthRange > 0 {
			wl, ok := f.Get(field.CentralWavelength).Number()
			if !ok {
				return 0, false
			}
			score += math.Abs(wl-twl) / o.WavelengthRange
		}
		return score, true
	case OrderReduction:
		raw := f.Reduction() == domain.Raw
		if raw == o.ProcessedFirst {
			return 1, true
		}
		return 0, true
	case OrderID:
		return float64(f.ID), true
	default:
		return 0, true
	}
}

func (o Order) compare(a, b domain.Frame) int {
	ka, oka := o.key(a)
	kb, okb := o.key(b)
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return 1
	case !okb:
		return -1
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

// Compare orders frames by the terms in turn.
func Compare(orders []Order, a, b domain.Frame) int {
	for _, o := range orders {
		if c := o.compare(a, b); c != 0 {
			return c
		}
	}
	if a.ID < b.ID {
		return -1
	} else if a.ID > b.ID {
		return 1
	}
	return 0
}
