package domain

import (
	"errors"
	"fmt"
)

type ObservationType string

const (
	ObsBias      ObservationType = "BIAS"
	ObsDark      ObservationType = "DARK"
	ObsFlat      ObservationType = "FLAT"
	ObsArc       ObservationType = "ARC"
	ObsObject    ObservationType = "OBJECT"
	ObsStandard  ObservationType = "STANDARD"
	ObsPinhole   ObservationType = "PINHOLE"
	ObsRonchi    ObservationType = "RONCHI"
	ObsMask      ObservationType = "MASK"
	ObsBPM       ObservationType = "BPM"
	ObsCal       ObservationType = "CAL"
	ObsFringe    ObservationType = "FRINGE"
	ObsSlitIllum ObservationType = "SLITILLUM"
)

func (o ObservationType) IsKnown() bool {
	switch o {
	case ObsBias, ObsDark, ObsFlat, ObsArc, ObsObject, ObsStandard, ObsPinhole,
		ObsRonchi, ObsMask, ObsBPM, ObsCal, ObsFringe, ObsSlitIllum:
		return true
	default:
		return false
	}
}

func (o ObservationType) String() string { return string(o) }

type ObservationClass string

const (
	ClassScience    ObservationClass = "science"
	ClassDayCal     ObservationClass = "dayCal"
	ClassPartnerCal ObservationClass = "partnerCal"
	ClassProgCal    ObservationClass = "progCal"
	ClassAcq        ObservationClass = "acq"
	ClassAcqCal     ObservationClass = "acqCal"
)

func (o ObservationClass) IsKnown() bool {
	switch o {
	case ClassScience, ClassDayCal, ClassPartnerCal, ClassProgCal, ClassAcq, ClassAcqCal:
		return true
	default:
		return false
	}
}

func (o ObservationClass) String() string { return string(o) }

// Reduction is the processing state of a frame.
type Reduction string

const (
	Raw                    Reduction = "RAW"
	Prepared               Reduction = "PREPARED"
	ProcessedFlatState     Reduction = "PROCESSED_FLAT"
	ProcessedBiasState     Reduction = "PROCESSED_BIAS"
	ProcessedFringeState   Reduction = "PROCESSED_FRINGE"
	ProcessedArcState      Reduction = "PROCESSED_ARC"
	ProcessedDarkState     Reduction = "PROCESSED_DARK"
	ProcessedTelluricState Reduction = "PROCESSED_TELLURIC"
	ProcessedScience       Reduction = "PROCESSED_SCIENCE"
	ProcessedBPMState      Reduction = "PROCESSED_BPM"
	ProcessedStandardState Reduction = "PROCESSED_STANDARD"
	ProcessedSlitIllum     Reduction = "PROCESSED_SLITILLUM"
	ProcessedPinholeState  Reduction = "PROCESSED_PINHOLE"
	ProcessedUnknown       Reduction = "PROCESSED_UNKNOWN"
	ProcessedPolFlat       Reduction = "PROCESSED_POLFLAT"
	ProcessedPolStandard   Reduction = "PROCESSED_POLSTANDARD"
	ProcessedAstrometric   Reduction = "PROCESSED_ASTROMETRIC"
	ProcessedPhotStandard  Reduction = "PROCESSED_PHOTSTANDARD"
)

func (r Reduction) IsKnown() bool {
	switch r {
	case Raw, Prepared, ProcessedFlatState, ProcessedBiasState, ProcessedFringeState,
		ProcessedArcState, ProcessedDarkState, ProcessedTelluricState, ProcessedScience,
		ProcessedBPMState, ProcessedStandardState, ProcessedSlitIllum, ProcessedPinholeState,
		ProcessedUnknown, ProcessedPolFlat, ProcessedPolStandard, ProcessedAstrometric,
		ProcessedPhotStandard:
		return true
	default:
		return false
	}
}

// IsProcessed reports whether the state is a reduced product.
func (r Reduction) IsProcessed() bool {
	return r != Raw && r != Prepared && r.IsKnown()
}

func (r Reduction) String() string { return string(r) }

// ProcessedFor returns the reduction state of processed products of the
// observation type, like PROCESSED_BIAS for BIAS.
func ProcessedFor(o ObservationType) Reduction {
	return Reduction("PROCESSED_" + string(o))
}

type QAState string

const (
	QAPass      QAState = "Pass"
	QAUsable    QAState = "Usable"
	QACheck     QAState = "CHECK"
	QAFail      QAState = "Fail"
	QAUndefined QAState = "Undefined"
)

func (q QAState) IsKnown() bool {
	switch q {
	case QAPass, QAUsable, QACheck, QAFail, QAUndefined:
		return true
	default:
		return false
	}
}

func (q QAState) String() string { return string(q) }

type Mode string

const (
	ModeImaging      Mode = "imaging"
	ModeSpectroscopy Mode = "spectroscopy"
	ModeLS           Mode = "LS"
	ModeMOS          Mode = "MOS"
	ModeIFS          Mode = "IFS"
	ModeIFP          Mode = "IFP"
)

func (m Mode) IsKnown() bool {
	switch m {
	case ModeImaging, ModeSpectroscopy, ModeLS, ModeMOS, ModeIFS, ModeIFP:
		return true
	default:
		return false
	}
}

func (m Mode) String() string { return string(m) }

// Frame type tags which policies test.
const (
	TypeMOS              = "MOS"
	TypeLS               = "LS"
	TypeIFU              = "IFU"
	TypeStandard         = "STANDARD"
	TypeTelluric         = "TELLURIC"
	TypeProcessedScience = "PROCESSED_SCIENCE"
	TypeSlitV            = "SLITV"
	TypeSlitIllum        = "SLITILLUM"
	TypePinhole          = "PINHOLE"
)

var ErrUnknownEnum = errors.New("unknown enumeration value")

func AsObservationType(s string) (ObservationType, error) {
	o := ObservationType(s)
	if o.IsKnown() {
		return o, nil
	}
	return o, fmt.Errorf(`%w: observation type "%s"`, ErrUnknownEnum, s)
}

func AsObservationClass(s string) (ObservationClass, error) {
	o := ObservationClass(s)
	if o.IsKnown() {
		return o, nil
	}
	return o, fmt.Errorf(`%w: observation class "%s"`, ErrUnknownEnum, s)
}

func AsReduction(s string) (Reduction, error) {
	r := Reduction(s)
	if r.IsKnown() {
		return r, nil
	}
	return r, fmt.Errorf(`%w: reduction "%s"`, ErrUnknownEnum, s)
}

func AsQAState(s string) (QAState, error) {
	q := QAState(s)
	if q.IsKnown() {
		return q, nil
	}
	return q, fmt.Errorf(`%w: qa state "%s"`, ErrUnknownEnum, s)
}
