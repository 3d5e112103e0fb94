// Package gpi is the calibration policy of GPI.
package gpi

import (
	"context"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

const (
	window = 365 * policy.Day

	// seconds
	darkExposureTolerance = 10
)

// common are descriptors every GPI calibration shares with its target.
var common = []field.Field{field.Instrument, field.Disperser, field.FilterName}

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:  "GPI",
		Rules: applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Dark:                dark,
			domain.Arc:                 arc,
			domain.Telluric:            telluric,
			domain.PolarizationStd:     polarizationStandard,
			domain.AstrometricStandard: astrometricStandard,
			domain.PolarizationFlat:    polarizationFlat,
			domain.BPM:                 bpm,
		},
	}
}

func applicable(t policy.Target) []domain.Caltype {
	if t.ObservationType() == domain.ObsBPM {
		return nil
	}
	ret := []domain.Caltype{}
	class := t.ObservationClass()
	if t.ObservationType() == domain.ObsObject && class != domain.ClassAcq && class != domain.ClassAcqCal {
		if t.Spectroscopy() {
			ret = append(ret, domain.Dark, domain.AstrometricStandard, domain.Arc, domain.Telluric)
		} else if t.Imaging() {
			// polarimetry
			ret = append(ret, domain.Dark, domain.AstrometricStandard, domain.PolarizationStd, domain.PolarizationFlat)
		}
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
		MaxInterval(window).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func arc(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Arc(t.Query(), processed).
		MatchDescriptors(common...).
		MaxInterval(window).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func telluric(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	q := query.TelluricStandard(t.Query(), processed)
	if !processed {
		q = q.ObservationClass(domain.ClassScience).
			AddFilters(query.Eq(field.CalibrationProgram, true))
	}
	return q.
		MatchDescriptors(common...).
		MaxInterval(window).
		All(ctx, policy.Howmany(howmany, processed, 1, 8))
}

func polarizationStandard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	q := t.Query()
	if processed {
		q = q.Reduction(domain.ProcessedPolStandard)
	} else {
		q = q.Raw().
			ObservationClass(domain.ClassScience).
			Spectroscopy(false).
			AddFilters(query.Eq(field.CalibrationProgram, true), query.Eq(field.Wollaston, true))
	}
	return q.
		MatchDescriptors(common...).
		MaxInterval(window).
		All(ctx, policy.Howmany(howmany, processed, 1, 8))
}

func astrometricStandard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	q := t.Query()
	if processed {
		q = q.Reduction(domain.ProcessedAstrometric)
	} else {
		q = q.Raw().
			ObservationType(domain.ObsObject).
			AddFilters(query.Eq(field.AstrometricStandard, true))
	}
	return q.
		MatchDescriptors(field.Instrument).
		MaxInterval(window).
		All(ctx, policy.Howmany(howmany, processed, 1, 8))
}

func polarizationFlat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	q := t.Query()
	if processed {
		q = q.Reduction(domain.ProcessedPolFlat)
	} else {
		q = query.Flat(q, false).
			ObservationClass(domain.ClassPartnerCal).
			AddFilters(query.Eq(field.Wollaston, true))
	}
	return q.
		MatchDescriptors(common...).
		MaxInterval(window).
		All(ctx, policy.Howmany(howmany, processed, 1, 8))
}
