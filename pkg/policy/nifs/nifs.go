// Package nifs is the calibration policy of NIFS.
package nifs

import (
	"context"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

const (
	darkWindow     = 90 * policy.Day
	flatWindow     = 10 * policy.Day
	lampoffWindow  = time.Hour
	arcWindow      = 365 * policy.Day
	telluricWindow = policy.Day
)

// flats are always read in one mode, so the read mode is not matched.
var optics = []field.Field{
	field.Instrument, field.CentralWavelength, field.Disperser, field.FocalPlaneMask, field.FilterName,
}

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:  "NIFS",
		Rules: applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Dark:             dark,
			domain.Flat:             flat,
			domain.Arc:              policy.NotProcessed(arc),
			domain.LampoffFlat:      policy.NotProcessed(lampoffFlat),
			domain.RonchiMask:       ronchiMask,
			domain.TelluricStandard: telluricStandard,
		},
	}
}

func applicable(t policy.Target) []domain.Caltype {
	obstype := t.ObservationType()
	class := t.ObservationClass()
	ret := []domain.Caltype{}

	if obstype == domain.ObsObject && t.Imaging() && class == domain.ClassScience {
		ret = append(ret, domain.Dark)
	}
	if obstype == domain.ObsObject && t.Spectroscopy() &&
		class != domain.ClassPartnerCal && class != domain.ClassProgCal {
		ret = append(ret,
			domain.Flat, domain.ProcessedFlat, domain.Arc,
			domain.RonchiMask, domain.TelluricStandard,
		)
	}
	if obstype == domain.ObsFlat && !t.Is(field.GcalLamp, "Off") {
		ret = append(ret, domain.LampoffFlat)
	}
	return ret
}

func dark(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Dark(t.Query(), processed).
		MatchDescriptors(field.Instrument, field.ExposureTime, field.ReadMode, field.Coadds, field.Disperser).
		MaxInterval(darkWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 10))
}

func flat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Flat(t.Query(), processed).
		AddFilters(query.In(field.GcalLamp, "IRhigh", "QH")).
		MatchDescriptors(optics...).
		MaxInterval(flatWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 10))
}

func lampoffFlat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Flat(t.Query(), false).
		AddFilters(query.Eq(field.GcalLamp, "Off")).
		MatchDescriptors(optics...).
		MaxInterval(lampoffWindow).
		All(ctx, policy.Howmany(howmany, processed, 10, 10))
}

func arc(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Arc(t.Query(), false).
		MatchDescriptors(optics...).
		MaxInterval(arcWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

// ronchi masks are not limited in time.
func ronchiMask(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return t.Query().
		ObservationType(domain.ObsRonchi).
		MatchDescriptors(field.Instrument, field.CentralWavelength, field.Disperser).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func telluricStandard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.TelluricStandard(t.Query(), processed).
		ObservationClass(domain.ClassPartnerCal).
		MatchDescriptors(optics...).
		MaxInterval(telluricWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 12))
}
