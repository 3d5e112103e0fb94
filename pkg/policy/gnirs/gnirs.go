// Package gnirs is the calibration policy of GNIRS.
package gnirs

import (
	"context"
	"strings"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

const (
	darkWindow     = 90 * policy.Day
	flatWindow     = 90 * policy.Day
	arcWindow      = 365 * policy.Day
	pinholeWindow  = 365 * policy.Day
	lampoffWindow  = policy.Day
	standardWindow = policy.Day

	// microns
	centralWavelengthTolerance = 0.001

	// spectroscopy has arcs below this wavelength.
	arcWavelengthLimit = 2.8

	// flats are lamp-on below these wavelengths for each camera, and
	// lamp-off from them.
	shortCameraFlatLimit  = 2.7
	longCamera32FlatLimit = 4.25
	longCameraFlatLimit   = 4.3

	// lamp-off frames serve as flats from this wavelength.
	lampoffFlatFrom = 4.25
)

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:  "GNIRS",
		Rules: applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Dark:        dark,
			domain.Flat:        flat,
			domain.Arc:         arc,
			domain.Pinhole:     pinhole,
			domain.LampoffFlat: policy.NotProcessed(lampoffFlat),
			domain.Telluric:    telluric,
			domain.Standard:    standard,
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
	class := t.ObservationClass()

	if obstype == domain.ObsObject && class != domain.ClassAcq && class != domain.ClassAcqCal && t.Imaging() {
		ret = append(ret, domain.Dark, domain.Flat, domain.LampoffFlat, domain.ProcessedFlat)
	}

	if obstype == domain.ObsObject && t.Spectroscopy() {
		ret = append(ret, domain.Telluric, domain.ProcessedTelluric, domain.Standard, domain.ProcessedStandard)

		wl, hasWavelength := t.Desc.Number(field.CentralWavelength)
		below := func(limit float64) bool { return hasWavelength && wl < limit }
		if below(arcWavelengthLimit) {
			ret = append(ret, domain.Arc)
		}

		disperser := t.Desc.Text(field.Disperser)
		camera := t.Desc.Text(field.Camera)
		flatOrLampoff := func(limit float64) {
			if below(limit) {
				ret = append(ret, domain.Flat)
			} else {
				ret = append(ret, domain.LampoffFlat)
			}
		}
		switch {
		case strings.Contains(disperser, "XD"):
			ret = append(ret, domain.Flat, domain.Pinhole)
		case strings.Contains(camera, "Short"):
			flatOrLampoff(shortCameraFlatLimit)
		case strings.Contains(camera, "Long") && strings.Contains(disperser, "32/mm"):
			flatOrLampoff(longCamera32FlatLimit)
		case strings.Contains(camera, "Long"):
			flatOrLampoff(longCameraFlatLimit)
		}
	}

	if obstype == domain.ObsFlat && t.Is(field.GcalLamp, "IRhigh") {
		ret = append(ret, domain.LampoffFlat)
	}

	return append(ret, domain.ProcessedBPM)
}

func bpm(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.BPM(t.Query(), processed).
		AddFilters(query.NotAfter()).
		MatchDescriptors(field.Instrument, field.DetectorBinning, field.ArrayName).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func dark(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Dark(t.Query(), processed).
		MatchDescriptors(
			field.Instrument, field.ExposureTime, field.ReadMode,
			field.WellDepthSetting, field.ArrayName, field.Coadds,
		).
		MaxInterval(darkWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 10))
}

// flatQuery is common to flats and lamp-off flats.
func flatQuery(t policy.Target, processed bool) query.Chain {
	q := query.Flat(t.Query(), processed).
		MatchDescriptors(
			field.Instrument, field.Disperser, field.Camera,
			field.FilterName, field.ArrayName, field.WellDepthSetting,
		).
		PreferEqual(field.ObservationID)
	if t.Spectroscopy() {
		q = q.Tolerance(field.CentralWavelength, centralWavelengthTolerance)
	}

	// pinholes are taken through the slit named after "&" of the mask.
	fpm := t.Desc.Text(field.FocalPlaneMask)
	if _, slit, ok := strings.Cut(fpm, "&"); ok && t.HasType(domain.TypePinhole) {
		return q.AddFilters(query.Contains(field.FocalPlaneMask, slit))
	}
	return q.MatchDescriptors(field.FocalPlaneMask)
}

func flat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	howmany = policy.Howmany(howmany, processed, 1, 10)

	q := flatQuery(t, processed)
	if strings.Contains(t.Desc.Text(field.FocalPlaneMask), "HR-IFU") {
		if t.Desc.Truthy(field.PrismMotorSteps) {
			q = q.MatchDescriptors(field.PrismMotorSteps)
		}
		q = q.AddFilters(query.NotEq(field.ObservationClass, domain.ClassAcqCal))
	}
	if processed {
		return q.All(ctx, howmany)
	}

	q = q.MaxInterval(flatWindow)
	if strings.Contains(t.Desc.Text(field.Disperser), "XD") {
		// cross dispersed flats take IR and QH lamps by turns.
		ir, err := q.AddFilters(query.Eq(field.GcalLamp, "IRhigh")).All(ctx, howmany)
		if err != nil {
			return nil, err
		}
		qh, err := q.AddFilters(query.StartsWith(field.GcalLamp, "QH")).All(ctx, howmany)
		if err != nil {
			return nil, err
		}
		return interleave(howmany, ir, qh), nil
	}

	lamps := []query.Filter{
		query.Eq(field.GcalLamp, "IRhigh"),
		query.StartsWith(field.GcalLamp, "QH"),
	}
	if wl, ok := t.Desc.Number(field.CentralWavelength); ok && wl >= lampoffFlatFrom {
		lamps = append(lamps, query.Eq(field.GcalLamp, "Off"))
	}
	return q.AddFilters(query.Or(lamps...)).All(ctx, howmany)
}

// interleave takes frames from a and b by turns, up to limit.
func interleave(limit int, a, b []domain.Frame) []domain.Frame {
	ret := make([]domain.Frame, 0, min(limit, len(a)+len(b)))
	seen := map[domain.FrameID]struct{}{}
	for i := 0; len(ret) < limit && (i < len(a) || i < len(b)); i++ {
		for _, fs := range [][]domain.Frame{a, b} {
			if i >= len(fs) || len(ret) >= limit {
				continue
			}
			if _, ok := seen[fs[i].ID]; ok {
				continue
			}
			seen[fs[i].ID] = struct{}{}
			ret = append(ret, fs[i])
		}
	}
	return ret
}

func arc(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Arc(t.Query(), processed).
		MatchDescriptors(
			field.Instrument, field.Disperser, field.FocalPlaneMask,
			field.FilterName, field.ArrayName, field.Camera,
		).
		Tolerance(field.CentralWavelength, centralWavelengthTolerance).
		MaxInterval(arcWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func pinhole(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Pinhole(t.Query(), processed).
		MatchDescriptors(field.Instrument, field.CentralWavelength, field.Disperser, field.Camera, field.ArrayName).
		MaxInterval(pinholeWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 5))
}

func lampoffFlat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return flatQuery(t, false).
		AddFilters(query.Eq(field.GcalLamp, "Off")).
		MaxInterval(lampoffWindow).
		All(ctx, policy.Howmany(howmany, processed, 10, 10))
}

// spectroscopicStandard looks standards of the spectroscopic target up.
//
// Processed ones are told by the type tag, raw ones by the observation class.
func spectroscopicStandard(t policy.Target, processed bool, tag string) query.Chain {
	q := t.Query().
		Spectroscopy(true).
		ObservationType(domain.ObsObject).
		MatchDescriptors(
			field.Instrument, field.CentralWavelength, field.Spectroscopy,
			field.Disperser, field.FocalPlaneMask, field.Camera,
			field.ArrayName, field.FilterName,
		).
		MaxInterval(standardWindow)
	if processed {
		return q.AddFilters(query.HasType(tag))
	}
	return q.Raw().AddFilters(
		query.In(field.ObservationClass, domain.ClassPartnerCal, domain.ClassProgCal),
		query.In(field.QAState, domain.QAPass, domain.QAUndefined),
	)
}

func telluric(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return spectroscopicStandard(t, processed, domain.TypeTelluric).
		All(ctx, policy.Howmany(howmany, processed, 1, 8))
}

func standard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return spectroscopicStandard(t, processed, domain.TypeStandard).
		All(ctx, policy.Howmany(howmany, processed, 1, 8))
}
