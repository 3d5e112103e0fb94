package query

import (
	"github.com/fitsarchive/calassoc/pkg/domain"
)

// RawOrProcessed selects processed products of the observation type, or raw
// frames of it.
func RawOrProcessed(c Chain, o domain.ObservationType, processed bool) Chain {
	if processed {
		return c.Reduction(domain.ProcessedFor(o))
	}
	return c.Raw().ObservationType(o)
}

func Bias(c Chain, processed bool) Chain    { return RawOrProcessed(c, domain.ObsBias, processed) }
func Dark(c Chain, processed bool) Chain    { return RawOrProcessed(c, domain.ObsDark, processed) }
func Flat(c Chain, processed bool) Chain    { return RawOrProcessed(c, domain.ObsFlat, processed) }
func Arc(c Chain, processed bool) Chain     { return RawOrProcessed(c, domain.ObsArc, processed) }
func Pinhole(c Chain, processed bool) Chain { return RawOrProcessed(c, domain.ObsPinhole, processed) }
func BPM(c Chain, processed bool) Chain     { return RawOrProcessed(c, domain.ObsBPM, processed) }

// Standard selects processed standards, or raw STANDARD frames.
func Standard(c Chain, processed bool) Chain {
	return RawOrProcessed(c, domain.ObsStandard, processed)
}

// PhotometricStandard selects processed photometric standards, or raw imaging
// OBJECT frames. Callers narrow raw ones further.
func PhotometricStandard(c Chain, processed bool) Chain {
	if processed {
		return c.Reduction(domain.ProcessedPhotStandard)
	}
	return c.Raw().Spectroscopy(false).ObservationType(domain.ObsObject)
}

// TelluricStandard selects processed telluric standards, or raw
// spectroscopic OBJECT frames. Callers narrow raw ones further.
func TelluricStandard(c Chain, processed bool) Chain {
	if processed {
		return c.Reduction(domain.ProcessedTelluricState)
	}
	return c.Raw().Spectroscopy(true).ObservationType(domain.ObsObject)
}

// Slitillum selects processed slit illuminations, or raw frames tagged SLITILLUM.
func Slitillum(c Chain, processed bool) Chain {
	if processed {
		return c.Reduction(domain.ProcessedSlitIllum)
	}
	return c.Raw().AddFilters(HasType(domain.TypeSlitIllum))
}
