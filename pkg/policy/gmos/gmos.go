// Package gmos is the calibration policy of GMOS-N and GMOS-S.
package gmos

import (
	"context"
	"math"
	"strings"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

const (
	fullFrame       = "Full Frame"
	centralSpectrum = "Central Spectrum"
	centralStamp    = "Central Stamp"

	// nod and shuffle darks are taken until the detector upgrade of 2020.
	nodAndShuffleDarkUntil = 2020
)

const (
	biasWindow      = 90 * policy.Day
	darkWindow      = 365 * policy.Day
	arcWindow       = 365 * policy.Day
	flatWindow      = 180 * policy.Day
	fringeWindow    = 365 * policy.Day
	standardWindow  = 183 * policy.Day
	slitillumWindow = 183 * policy.Day
	photStdWindow   = policy.Day

	// specphots are scored by time over a year.
	specphotTimeRange = 365 * policy.Day

	// seconds
	darkExposureTolerance = 50
	// microns
	centralWavelengthTolerance = 0.001

	// wavelength tolerances as pixels on the detector.
	standardPixels = 200
	mosPixels      = 1000

	// degrees of elevation (and of the rotator, scaled) spectroscopic
	// flats may be off by.
	ifuFlatElevation = 7.5
	redFlatElevation = 15
	redWavelength    = 0.55
	nearZenith       = 85
)

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:  "GMOS",
		Match: func(instrument string) bool { return strings.Contains(instrument, "GMOS") },
		Rules: applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Bias:                bias,
			domain.Dark:                dark,
			domain.Flat:                flat,
			domain.Arc:                 policy.NotImaging(arc),
			domain.Fringe:              fringe,
			domain.Standard:            standard,
			domain.Specphot:            policy.NotProcessed(policy.NotImaging(specphot)),
			domain.PhotometricStandard: policy.NotProcessed(policy.NotSpectroscopy(photometricStandard)),
			domain.Mask:                policy.NotProcessed(mask),
			domain.Slitillum:           policy.NotImaging(slitillum),
			domain.BPM:                 bpm,
		},
	}
}

func applicable(t policy.Target) []domain.Caltype {
	obstype := t.ObservationType()
	if obstype == domain.ObsMask || obstype == domain.ObsBPM || t.HasType(domain.TypeProcessedScience) {
		return nil
	}

	class := t.ObservationClass()
	acquisition := class == domain.ClassAcq || class == domain.ClassAcqCal
	twilight := t.Is(field.Object, "Twilight")
	_, hasWavelength := t.Desc.Number(field.CentralWavelength)

	ret := []domain.Caltype{}
	if !(obstype == domain.ObsBias || obstype == domain.ObsArc || acquisition ||
		t.Is(field.DetectorROISetting, centralStamp)) {
		ret = append(ret, domain.Bias, domain.ProcessedBias)
	}

	if t.Spectroscopy() {
		switch {
		case obstype == domain.ObsFlat:
			ret = append(ret, domain.Arc, domain.ProcessedArc)
		case obstype == domain.ObsObject && !twilight:
			ret = append(ret, domain.Arc, domain.ProcessedArc, domain.Flat, domain.ProcessedFlat)
			if !t.HasType(domain.TypeStandard) {
				ret = append(ret, domain.Specphot)
				if hasWavelength {
					ret = append(ret, domain.ProcessedStandard, domain.ProcessedSlitillum, domain.Slitillum)
				}
			}
		}
	}

	if t.Is(field.FocalPlaneMask, "Imaging") && obstype == domain.ObsObject && !twilight && !acquisition {
		ret = append(ret, domain.Flat, domain.ProcessedFlat, domain.ProcessedFringe)
		if hasWavelength {
			ret = append(ret, domain.ProcessedStandard)
		}
		if class == domain.ClassScience {
			ret = append(ret, domain.PhotometricStandard)
		}
	}

	if nod, ok := t.Desc.Flag(field.NodAndShuffle); ok && nod && obstype == domain.ObsObject {
		ut, ok := t.Desc.Time(field.UTDateTime)
		if !ok || ut.Year() < nodAndShuffleDarkUntil {
			ret = append(ret, domain.Dark, domain.ProcessedDark)
		}
	}

	if t.HasType(domain.TypeMOS) {
		ret = append(ret, domain.Mask)
	}

	if t.Desc.Truthy(field.DetectorXBin) && t.Desc.Truthy(field.DetectorYBin) {
		ret = append(ret, domain.ProcessedBPM)
	}
	return ret
}

// regionOfInterest restricts calibrations to those read out over the target's region.
//
// Processed calibrations are selected by the ROI setting, and raw ones by
// the amplifier read area.
func regionOfInterest(processed bool) query.Filter {
	return query.Relative(func(d domain.Descriptors) query.Filter {
		roi := d.Text(field.DetectorROISetting)
		if processed {
			switch roi {
			case centralSpectrum:
				return query.In(field.DetectorROISetting, fullFrame, centralSpectrum)
			default:
				return query.Eq(field.DetectorROISetting, fullFrame)
			}
		}
		if roi == fullFrame || roi == centralSpectrum {
			return query.SameAs(field.AmpReadArea)
		}
		return query.ContainsTarget(field.AmpReadArea)
	})
}

// ampReadArea restricts calibrations by the amplifier read area regardless
// of the processing state.
func ampReadArea() query.Filter {
	return query.Relative(func(d domain.Descriptors) query.Filter {
		roi := d.Text(field.DetectorROISetting)
		if roi == fullFrame || roi == centralSpectrum {
			return query.SameAs(field.AmpReadArea)
		}
		return query.ContainsTarget(field.AmpReadArea)
	})
}

var gratings = []struct {
	name  string
	lines float64
}{
	{"B1200", 1200},
	{"B480", 480},
	{"B600", 600},
	{"R600", 600},
	{"R400", 400},
	{"R831", 831},
	{"R150", 150},
}

const defaultDispersion = 0.03 / 1200

// dispersion returns microns per pixel of the disperser.
//
// ok is false for the mirror and unknown dispersers.
func dispersion(disperser string) (float64, bool) {
	if strings.HasPrefix(disperser, "MIRROR") {
		return 0, false
	}
	for _, g := range gratings {
		if strings.HasPrefix(disperser, g.name) {
			return 0.03 / g.lines, true
		}
	}
	return 0, false
}

// wavelengthTolerance returns a tolerance of central wavelength, as pixels
// on the detector.
func wavelengthTolerance(t policy.Target, pixels float64) float64 {
	d, ok := dispersion(t.Desc.Text(field.Disperser))
	if !ok {
		d = defaultDispersion
	}
	return pixels * d
}

func bias(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	q := query.Bias(t.Query(), processed).
		AddFilters(regionOfInterest(processed))

	if prepared, ok := t.Desc.Flag(field.Prepared); processed && ok && prepared {
		q = q.MatchDescriptors(field.OverscanTrimmed, field.OverscanSubtracted)
	}

	return q.
		MatchDescriptors(field.Instrument, field.DetectorXBin, field.DetectorYBin, field.ReadSpeedSetting, field.GainSetting).
		MaxInterval(biasWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 50))
}

func dark(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Dark(t.Query(), processed).
		AddFilters(regionOfInterest(processed)).
		MatchDescriptors(
			field.Instrument, field.DetectorXBin, field.DetectorYBin,
			field.ReadSpeedSetting, field.GainSetting,
			field.NodCount, field.NodPixels,
		).
		Tolerance(field.ExposureTime, darkExposureTolerance).
		PreferEqual(field.ExposureTime).
		MaxInterval(darkWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 15))
}

func arc(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	fpm := query.SameAs(field.FocalPlaneMask)
	if t.Is(field.FocalPlaneMask, "5.0arcsec") {
		fpm = query.Like(field.FocalPlaneMask, "%arcsec")
	}
	return query.Arc(t.Query(), processed).
		AddFilters(fpm, regionOfInterest(processed)).
		MatchDescriptors(field.Instrument, field.Disperser, field.FilterName, field.DetectorXBin, field.DetectorYBin).
		Tolerance(field.CentralWavelength, centralWavelengthTolerance).
		MaxInterval(arcWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func flat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	common := []field.Field{
		field.Instrument, field.DetectorXBin, field.DetectorYBin, field.FilterName,
		field.ReadSpeedSetting, field.GainSetting, field.Spectroscopy,
	}

	if t.Imaging() {
		q := t.Query()
		if processed {
			q = q.Reduction(domain.ProcessedFlatState)
		} else {
			q = q.Raw().
				ObservationClass(domain.ClassDayCal).
				ObservationType(domain.ObsObject).
				Object("Twilight")
		}
		return q.
			AddFilters(ampReadArea()).
			MatchDescriptors(common...).
			MaxInterval(flatWindow).
			All(ctx, policy.Howmany(howmany, processed, 1, 20))
	}

	q := query.Flat(t.Query(), processed).
		AddFilters(ampReadArea()).
		MatchDescriptors(common...).
		MatchDescriptors(field.FocalPlaneMask, field.Disperser).
		Tolerance(field.CentralWavelength, centralWavelengthTolerance).
		MaxInterval(flatWindow)

	if el, ok := t.Desc.Number(field.Elevation); ok {
		threshold := 0.0
		if strings.HasPrefix(t.Desc.Text(field.FocalPlaneMask), "IFU") {
			threshold = ifuFlatElevation
		}
		if wl, ok := t.Desc.Number(field.CentralWavelength); (ok && wl > redWavelength) ||
			strings.HasPrefix(t.Desc.Text(field.Disperser), "R150") {
			threshold = redFlatElevation
		}
		if threshold > 0 {
			q = q.Tolerance(field.Elevation, threshold)
			if el < nearZenith {
				q = q.Tolerance(field.CassRotatorPA, threshold/math.Cos(el*math.Pi/180))
			}
		}
	}
	return q.All(ctx, policy.Howmany(howmany, processed, 1, 2))
}

func fringe(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.RawOrProcessed(t.Query(), domain.ObsFringe, processed).
		AddFilters(regionOfInterest(processed)).
		MatchDescriptors(field.Instrument, field.DetectorXBin, field.DetectorYBin, field.FilterName).
		MaxInterval(fringeWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func standard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Standard(t.Query(), processed).
		MatchDescriptors(field.Instrument, field.Disperser, field.DetectorXBin, field.DetectorYBin, field.FilterName).
		Tolerance(field.CentralWavelength, wavelengthTolerance(t, standardPixels)).
		MaxInterval(standardWindow).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func specphot(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	tolerance := wavelengthTolerance(t, standardPixels)
	var fpm query.Filter
	switch {
	case t.HasType(domain.TypeMOS):
		fpm = query.Contains(field.FocalPlaneMask, "arcsec")
		tolerance = wavelengthTolerance(t, mosPixels)
	case t.HasType(domain.TypeLS):
		fpm = query.Contains(field.FocalPlaneMask, "arcsec")
	case t.HasType(domain.TypeIFU):
		fpm = query.StartsWith(field.FocalPlaneMask, "IFU")
	default:
		fpm = query.SameAs(field.FocalPlaneMask)
	}

	return t.Query().
		Raw().
		ObservationType(domain.ObsObject).
		Spectroscopy(true).
		AddFilters(
			query.HasType(domain.TypeStandard),
			query.NotEq(field.Object, "Twilight"),
			fpm,
		).
		MatchDescriptors(field.Instrument, field.FilterName, field.Disperser).
		Tolerance(field.CentralWavelength, tolerance).
		MaxInterval(standardWindow).
		OrderByScore(specphotTimeRange, tolerance).
		All(ctx, policy.Howmany(howmany, processed, 4, 4))
}

func photometricStandard(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.PhotometricStandard(t.Query(), processed).
		ObservationClass(domain.ClassPartnerCal).
		AddFilters(query.Like(field.ProgramID, "G_-CAL%")).
		MatchDescriptors(field.Instrument, field.FilterName).
		MaxInterval(photStdWindow).
		All(ctx, policy.Howmany(howmany, processed, 4, 4))
}

func mask(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return t.Query().
		ObservationType(domain.ObsMask).
		AddFilters(
			query.Eq(field.DataLabel, t.Desc.Get(field.FocalPlaneMask)),
			query.StartsWith(field.Instrument, "GMOS"),
		).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func slitillum(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	tolerance := wavelengthTolerance(t, standardPixels)
	return query.Slitillum(t.Query(), processed).
		MatchDescriptors(field.Instrument, field.Disperser, field.DetectorYBin, field.FilterName, field.FocalPlaneMask).
		Tolerance(field.CentralWavelength, tolerance).
		MaxInterval(slitillumWindow).
		OrderByScore(slitillumWindow, tolerance).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func bpm(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	if strings.TrimSpace(t.Desc.Text(field.ArrayName)) == "" {
		return []domain.Frame{}, nil
	}
	return query.BPM(t.Query(), processed).
		AddFilters(query.NotAfter(), query.ContainsTarget(field.ArrayName)).
		MatchDescriptors(field.Instrument, field.DetectorXBin, field.DetectorYBin).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}
