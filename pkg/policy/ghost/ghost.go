// Package ghost is the calibration policy of GHOST.
//
// GHOST frames may be bundles: a header with a detail record per arm
// (blue, red and slit viewer). Lookups for bundles run arm by arm, see
// package bundle.
package ghost

import (
	"context"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

const (
	biasWindow     = 90 * policy.Day
	flatWindow     = 180 * policy.Day
	arcWindow      = 365 * policy.Day
	twiWindow      = 365 * policy.Day
	specphotWindow = 365 * policy.Day
	slitWindow     = 30 * time.Second
	slitViewer     = "ICX674"
	arcsDefault    = 2
)

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:    "GHOST",
		Bundled: true,
		Rules:   applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Bias:         bias,
			domain.Arc:          arc,
			domain.Flat:         flat,
			domain.Slitflat:     slitflat,
			domain.Slit:         slit,
			domain.Spectwilight: policy.NotProcessed(spectwilight),
			domain.Specphot:     policy.NotProcessed(specphot),
		},
	}
}

func applicable(t policy.Target) []domain.Caltype {
	if t.HasType(domain.TypeProcessedScience) {
		return nil
	}

	ret := []domain.Caltype{}
	obstype := t.ObservationType()
	if obstype != domain.ObsBias {
		ret = append(ret, domain.Bias, domain.ProcessedBias)
	}

	// GHOST is always spectroscopic, whatever the flag says.
	class := t.ObservationClass()
	if obstype == domain.ObsObject && !t.Is(field.Object, "Twilight") &&
		class != domain.ClassPartnerCal && class != domain.ClassProgCal {
		ret = append(ret,
			domain.Arc, domain.ProcessedArc,
			domain.Flat, domain.ProcessedFlat,
			domain.Spectwilight, domain.Specphot,
		)
	}
	return ret
}

// wantBeforeArc reads want_before_arc of the target.
//
// For bundles, it is set when any arm sets it.
func wantBeforeArc(t policy.Target) bool {
	if !t.Desc.IsPerArm(field.WantBeforeArc) {
		return !t.Desc.Get(field.WantBeforeArc).IsNull()
	}
	for _, v := range t.Desc.ArmValues(field.WantBeforeArc) {
		if !v.IsNull() {
			return true
		}
	}
	return false
}

// arcDirection restricts arcs to before or after the target, as the
// target's want_before_arc tells.
func arcDirection() query.Filter {
	return query.Relative(func(d domain.Descriptors) query.Filter {
		before, ok := d.Flag(field.WantBeforeArc)
		switch {
		case !ok:
			return nil
		case before:
			return query.Before()
		default:
			return query.After()
		}
	})
}

func arc(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	if wantBeforeArc(t) {
		howmany = 1
	}
	return query.Arc(t.Query(), processed).
		AddFilters(arcDirection()).
		MatchDescriptors(field.Instrument, field.FocalPlaneMask).
		MaxInterval(arcWindow).
		All(ctx, policy.Howmany(howmany, processed, arcsDefault, arcsDefault))
}

func bias(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	q := query.Bias(t.Query(), processed)

	// Bundles are never prepared.
	if prepared, ok := t.Desc.Flag(field.Prepared); processed && ok && prepared && !t.Desc.IsPerArm(field.Prepared) {
		q = q.MatchDescriptors(field.OverscanTrimmed, field.OverscanSubtracted)
	}

	return q.
		MatchDescriptors(
			field.Instrument, field.Arm,
			field.DetectorXBin, field.DetectorYBin,
			field.ReadSpeedSetting, field.GainSetting,
		).
		MaxInterval(biasWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 50))
}

func flat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Flat(t.Query(), processed).
		MatchDescriptors(
			field.Instrument, field.Spectroscopy,
			field.ReadSpeedSetting, field.GainSetting, field.FocalPlaneMask,
		).
		MaxInterval(flatWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 2))
}

// slitflat looks flats of the slit viewer up.
//
// Slit viewer frames take ordinary processed flats.
func slitflat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	if t.HasType(domain.TypeSlitV) {
		return flat(ctx, t, true, howmany)
	}
	return t.Query().
		Spectroscopy(false).
		ObservationType(domain.ObsFlat).
		MatchDescriptors(field.Instrument, field.ReadSpeedSetting, field.GainSetting, field.FocalPlaneMask).
		MaxInterval(flatWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 20))
}

// slit looks the processed slit viewer image taken with the target up.
func slit(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	red := domain.ProcessedUnknown
	if t.ObservationType() == domain.ObsArc {
		red = domain.ProcessedArcState
	}
	return t.Query().
		Reduction(red).
		Spectroscopy(false).
		AddFilters(query.Contains(field.DetectorName, slitViewer)).
		MatchDescriptors(field.Instrument, field.ObservationType, field.FocalPlaneMask).
		MaxInterval(slitWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func spectwilight(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return t.Query().
		Raw().
		ObservationType(domain.ObsObject).
		Spectroscopy(true).
		Object("Twilight").
		MatchDescriptors(field.Instrument, field.DetectorXBin, field.DetectorYBin, field.FocalPlaneMask).
		MaxInterval(twiWindow).
		All(ctx, policy.Howmany(howmany, processed, 2, 2))
}

// specphot finds spectrophotometric standards. Binnings of them often differ
// from the target's, so they are not matched.
func specphot(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return t.Query().
		Raw().
		ObservationType(domain.ObsObject).
		AddFilters(
			query.In(field.ObservationClass, domain.ClassPartnerCal, domain.ClassProgCal),
			query.NotEq(field.Object, "Twilight"),
		).
		MatchDescriptors(field.Instrument).
		MaxInterval(specphotWindow).
		All(ctx, policy.Howmany(howmany, processed, 4, 4))
}
