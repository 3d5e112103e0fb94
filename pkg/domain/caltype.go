package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Caltype names a kind of calibration, like "bias" or "processed_flat".
type Caltype string

const (
	Bias                Caltype = "bias"
	Dark                Caltype = "dark"
	Flat                Caltype = "flat"
	Arc                 Caltype = "arc"
	ProcessedBias       Caltype = "processed_bias"
	ProcessedDark       Caltype = "processed_dark"
	ProcessedFlat       Caltype = "processed_flat"
	ProcessedArc        Caltype = "processed_arc"
	ProcessedFringe     Caltype = "processed_fringe"
	Pinhole             Caltype = "pinhole"
	ProcessedPinhole    Caltype = "processed_pinhole"
	RonchiMask          Caltype = "ronchi_mask"
	Spectwilight        Caltype = "spectwilight"
	LampoffFlat         Caltype = "lampoff_flat"
	QHFlat              Caltype = "qh_flat"
	Specphot            Caltype = "specphot"
	PhotometricStandard Caltype = "photometric_standard"
	TelluricStandard    Caltype = "telluric_standard"
	Telluric            Caltype = "telluric"
	ProcessedTelluric   Caltype = "processed_telluric"
	Standard            Caltype = "standard"
	Domeflat            Caltype = "domeflat"
	LampoffDomeflat     Caltype = "lampoff_domeflat"
	Mask                Caltype = "mask"
	PolarizationStd     Caltype = "polarization_standard"
	AstrometricStandard Caltype = "astrometric_standard"
	PolarizationFlat    Caltype = "polarization_flat"
	ProcessedStandard   Caltype = "processed_standard"
	ProcessedSlitillum  Caltype = "processed_slitillum"
	Slitillum           Caltype = "slitillum"
	ProcessedSlitflat   Caltype = "processed_slitflat"
	ProcessedSlit       Caltype = "processed_slit"
	ProcessedBPM        Caltype = "processed_bpm"
)

// Caltypes lists known caltypes in the order associations are reported.
var Caltypes = []Caltype{
	Bias, Dark, Flat, Arc,
	ProcessedBias, ProcessedDark, ProcessedFlat, ProcessedArc, ProcessedFringe,
	Pinhole, ProcessedPinhole, RonchiMask, Spectwilight, LampoffFlat, QHFlat,
	Specphot, PhotometricStandard, TelluricStandard, Telluric, ProcessedTelluric,
	Standard, Domeflat, LampoffDomeflat, Mask,
	PolarizationStd, AstrometricStandard, PolarizationFlat,
	ProcessedStandard, ProcessedSlitillum, Slitillum,
	ProcessedSlitflat, ProcessedSlit, ProcessedBPM,
}

var ErrUnknownCaltype = errors.New("unknown caltype")

func (c Caltype) String() string { return string(c) }

func (c Caltype) IsKnown() bool {
	return c.index() >= 0
}

func (c Caltype) index() int {
	for i, k := range Caltypes {
		if k == c {
			return i
		}
	}
	return -1
}

// Base splits a caltype into the lookup it is served by and whether
// processed products are requested.
//
// "processed_bias" is ("bias", true); "bias" is ("bias", false).
func (c Caltype) Base() (Caltype, bool) {
	if s, ok := strings.CutPrefix(string(c), "processed_"); ok {
		return Caltype(s), true
	}
	return c, false
}

// IsPinned reports whether at most one association of the caltype is cached,
// ranked before any other.
func (c Caltype) IsPinned() bool {
	return c == ProcessedBPM
}

func AsCaltype(s string) (Caltype, error) {
	c := Caltype(s)
	if c.IsKnown() {
		return c, nil
	}
	return c, fmt.Errorf(`%w: "%s"`, ErrUnknownCaltype, s)
}

// SortCaltypes sorts caltypes in report order. Unknown ones go last.
func SortCaltypes(cs []Caltype) {
	slices.SortStableFunc(cs, compareCaltypes)
}

func compareCaltypes(a, b Caltype) int {
	ia, ib := a.index(), b.index()
	if ia < 0 {
		ia = len(Caltypes)
	}
	if ib < 0 {
		ib = len(Caltypes)
	}
	if ia != ib {
		return ia - ib
	}
	return strings.Compare(string(a), string(b))
}

// Lookups which serve only processed caltypes.
const (
	BPM      Caltype = "bpm"
	Fringe   Caltype = "fringe"
	Slitflat Caltype = "slitflat"
	Slit     Caltype = "slit"
)
