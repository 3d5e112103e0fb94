// Package nici is the calibration policy of NICI.
package nici

import (
	"context"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

const (
	darkWindow    = policy.Day
	flatWindow    = policy.Day
	lampoffWindow = time.Hour

	// seconds
	darkExposureTolerance = 0.01
)

// optics the calibrations share with the target.
var optics = []field.Field{field.Instrument, field.FilterName, field.FocalPlaneMask, field.Disperser}

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:  "NICI",
		Rules: applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Dark:        dark,
			domain.Flat:        flat,
			domain.LampoffFlat: policy.NotProcessed(lampoffFlat),
			domain.BPM:         bpm,
		},
	}
}

func applicable(t policy.Target) []domain.Caltype {
	obstype := t.ObservationType()
	if obstype == domain.ObsBPM {
		return nil
	}
	ret := []domain.Caltype{}
	if obstype == domain.ObsObject && t.ObservationClass() == domain.ClassScience {
		ret = append(ret, domain.Dark, domain.Flat)
	}
	if obstype == domain.ObsFlat && !t.Is(field.GcalLamp, "Off") {
		ret = append(ret, domain.LampoffFlat)
	}
	return append(ret, domain.ProcessedBPM)
}

func bpm(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.BPM(t.Query(), processed).
		AddFilters(query.NotAfter()).
		MatchDescriptors(field.Instrument, field.DetectorBinning).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func dark(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Dark(t.Query(), processed).
		MatchDescriptors(field.Instrument).
		Tolerance(field.ExposureTime, darkExposureTolerance).
		MaxInterval(darkWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 10))
}

func flat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Flat(t.Query(), processed).
		AddFilters(query.Eq(field.GcalLamp, "IRhigh")).
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
