package policy

import (
	"context"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
)

const Day = 24 * time.Hour

// Howmany resolves the requested count against defaults.
func Howmany(howmany int, processed bool, processedDefault, rawDefault int) int {
	if howmany > 0 {
		return howmany
	}
	if processed {
		return processedDefault
	}
	return rawDefault
}

func nothing(context.Context, Target, bool, int) ([]domain.Frame, error) {
	return []domain.Frame{}, nil
}

// NotProcessed makes the method find nothing for processed caltypes.
func NotProcessed(m Method) Method {
	return func(ctx context.Context, t Target, processed bool, howmany int) ([]domain.Frame, error) {
		if processed {
			return nothing(ctx, t, processed, howmany)
		}
		return m(ctx, t, processed, howmany)
	}
}

// NotImaging makes the method find nothing for imaging targets.
func NotImaging(m Method) Method {
	return func(ctx context.Context, t Target, processed bool, howmany int) ([]domain.Frame, error) {
		if s, ok := t.Desc.Flag(field.Spectroscopy); ok && !s {
			return nothing(ctx, t, processed, howmany)
		}
		return m(ctx, t, processed, howmany)
	}
}

// NotSpectroscopy makes the method find nothing for spectroscopic targets.
func NotSpectroscopy(m Method) Method {
	return func(ctx context.Context, t Target, processed bool, howmany int) ([]domain.Frame, error) {
		if s, ok := t.Desc.Flag(field.Spectroscopy); ok && s {
			return nothing(ctx, t, processed, howmany)
		}
		return m(ctx, t, processed, howmany)
	}
}

// Is reports whether the target's field holds the text.
func (t Target) Is(f field.Field, s string) bool {
	v, ok := t.Desc.Get(f).Text()
	return ok && v == s
}

// Spectroscopy reports whether the target is spectroscopic.
func (t Target) Spectroscopy() bool {
	s, ok := t.Desc.Flag(field.Spectroscopy)
	return ok && s
}

// Imaging reports whether the target is explicitly not spectroscopic.
func (t Target) Imaging() bool {
	s, ok := t.Desc.Flag(field.Spectroscopy)
	return ok && !s
}

func (t Target) ObservationType() domain.ObservationType {
	return domain.ObservationType(t.Desc.Text(field.ObservationType))
}

func (t Target) ObservationClass() domain.ObservationClass {
	return domain.ObservationClass(t.Desc.Text(field.ObservationClass))
}
