// Package niri is the calibration policy of NIRI.
package niri

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

const (
	darkWindow     = 180 * policy.Day
	flatWindow     = 180 * policy.Day
	arcWindow      = 180 * policy.Day
	lampoffWindow  = policy.Day
	standardWindow = policy.Day

	// seconds
	darkExposureTolerance = 0.01
	// microns
	centralWavelengthTolerance = 0.001
)

// thermal filters are not flat fielded.
var thermal = []string{
	"Lprime_G0207", "Mprime_G0208", "Bra_G0238", "Bracont_G0237", "hydrocarb_G0231",
}

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:  "NIRI",
		Rules: applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Dark:                dark,
			domain.Flat:                flat,
			domain.Arc:                 arc,
			domain.LampoffFlat:         policy.NotProcessed(lampoffFlat),
			domain.PhotometricStandard: policy.NotProcessed(photometricStandard),
			domain.TelluricStandard:    policy.NotProcessed(telluricStandard),
			domain.BPM:                 bpm,
		},
	}
}

func applicable(t policy.Target) []domain.Caltype {
	obstype := t.ObservationType()
	if obstype == domain.ObsBPM {
		return nil
	}

	ret := []domain.Caltype{}
	class := t.ObservationClass()
	flatFielded := !slices.Contains(thermal, t.Desc.Text(field.FilterName))

	if obstype == domain.ObsObject && t.Imaging() {
		ret = append(ret, domain.ProcessedFlat)
		switch class {
		case domain.ClassPartnerCal:
			if flatFielded {
				ret = append(ret, domain.Flat)
			}
		case domain.ClassScience:
			ret = append(ret, domain.Dark)
			if flatFielded {
				ret = append(ret, domain.Flat)
			}
			ret = append(ret, domain.PhotometricStandard)
		}
	}

	if obstype == domain.ObsFlat && t.Imaging() && !t.Is(field.GcalLamp, "Off") {
		ret = append(ret, domain.LampoffFlat)
	}

	if obstype == domain.ObsObject && t.Spectroscopy() {
		ret = append(ret, domain.Flat, domain.Arc)
		if class == domain.ClassScience {
			ret = append(ret, domain.TelluricStandard, domain.ProcessedFlat)
		}
	}

	return append(ret, domain.ProcessedBPM)
}

// normalizeSection rewrites a data section "[x1, x2, y1, y2]" in the form
// sections are stored in.
func normalizeSection(s string) string {
	if s == "" || !strings.ContainsAny(s[:1], "([") {
		return s
	}
	arr := strings.Split(s[1:len(s)-1], ",")
	if len(arr) != 4 {
		return s
	}
	for i := range arr {
		arr[i] = strings.TrimSpace(arr[i])
	}
	return fmt.Sprintf("Section(x1=%s, x2=%s, y1=%s, y2=%s)", arr[0], arr[1], arr[2], arr[3])
}

// sameSection matches frames read out over the target's data section.
func sameSection() query.Filter {
	return query.Relative(func(d domain.Descriptors) query.Filter {
		v := d.Get(field.DataSection)
		if s, ok := v.Text(); ok {
			return query.Eq(field.DataSection, normalizeSection(s))
		}
		return query.Eq(field.DataSection, v)
	})
}

func dark(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Dark(t.Query(), processed).
		AddFilters(sameSection()).
		MatchDescriptors(field.Instrument, field.ReadMode, field.WellDepthSetting, field.Coadds).
		Tolerance(field.ExposureTime, darkExposureTolerance).
		MaxInterval(darkWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 10))
}

func flat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	lamps := []query.Filter{
		query.Eq(field.GcalLamp, "IRhigh"),
		query.Eq(field.GcalLamp, "IRlow"),
		query.StartsWith(field.GcalLamp, "QH"),
	}
	if t.Is(field.Disperser, "Mgrism") {
		lamps = append(lamps, query.Eq(field.GcalLamp, "Off"))
	}

	q := query.Flat(t.Query(), processed).
		AddFilters(query.Or(lamps...), sameSection()).
		MatchDescriptors(
			field.Instrument, field.WellDepthSetting, field.FilterName,
			field.Camera, field.FocalPlaneMask, field.Disperser,
		).
		MaxInterval(flatWindow)
	if t.Spectroscopy() {
		q = q.Tolerance(field.CentralWavelength, centralWavelengthTolerance)
	}
	return q.All(ctx, policy.Howmany(howmany, processed, 1, 10))
}

func arc(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Arc(t.Query(), processed).
		AddFilters(sameSection()).
		MatchDescriptors(field.Instrument, field.FilterName, field.Camera, field.FocalPlaneMask, field.Disperser).
		Tolerance(field.CentralWavelength, centralWavelengthTolerance).
		MaxInterval(arcWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func lampoffFlat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Flat(t.Query(), false).
		AddFilters(query.Eq(field.GcalLamp, "Off"), sameSection()).
		MatchDescriptors(field.Instrument, field.WellDepthSetting, field.FilterName, field.Camera, field.Disperser).
		MaxInterval(lampoffWindow).
		All(ctx, policy.Howmany(howmany, processed, 10, 10))
}

func photometricStandard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.PhotometricStandard(t.Query(), false).
		AddFilters(query.Eq(field.PhotStandard, true)).
		MatchDescriptors(field.Instrument, field.FilterName, field.Camera).
		MaxInterval(standardWindow).
		All(ctx, policy.Howmany(howmany, processed, 10, 10))
}

func telluricStandard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.TelluricStandard(t.Query(), false).
		ObservationClass(domain.ClassPartnerCal).
		MatchDescriptors(field.Instrument, field.FilterName, field.Camera, field.FocalPlaneMask, field.Disperser).
		Tolerance(field.CentralWavelength, centralWavelengthTolerance).
		MaxInterval(standardWindow).
		All(ctx, policy.Howmany(howmany, processed, 10, 10))
}

func bpm(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.BPM(t.Query(), processed).
		IncludeEngineering().
		AddFilters(query.NotAfter()).
		MatchDescriptors(field.Instrument, field.DetectorBinning).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}
