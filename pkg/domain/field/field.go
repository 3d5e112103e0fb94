// Package field names the descriptors a frame carries and where they are stored.
//
// A descriptor lives either in the frame header (instrument-agnostic) or in the
// instrument detail record. Bundled frames have one detail record per arm, so
// only detail fields can take per-arm values.
package field

import (
	"fmt"
	"sort"
)

type Field string

type Table int

const (
	Header Table = iota
	Detail
)

func (t Table) String() string {
	switch t {
	case Header:
		return "frame"
	case Detail:
		return "frame_detail"
	default:
		return fmt.Sprintf("table(%d)", int(t))
	}
}

type Kind int

const (
	Text Kind = iota
	Number
	Flag
	Time
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Flag:
		return "flag"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// header fields
const (
	Instrument         Field = "instrument"
	DataLabel          Field = "data_label"
	ObservationType    Field = "observation_type"
	ObservationClass   Field = "observation_class"
	ObservationID      Field = "observation_id"
	Reduction          Field = "reduction"
	UTDateTime         Field = "ut_datetime"
	Spectroscopy       Field = "spectroscopy"
	Mode               Field = "mode"
	FilterName         Field = "filter_name"
	Disperser          Field = "disperser"
	FocalPlaneMask     Field = "focal_plane_mask"
	CentralWavelength  Field = "central_wavelength"
	DetectorBinning    Field = "detector_binning"
	DetectorROISetting Field = "detector_roi_setting"
	Camera             Field = "camera"
	ExposureTime       Field = "exposure_time"
	Coadds             Field = "coadds"
	Elevation          Field = "elevation"
	CassRotatorPA      Field = "cass_rotator_pa"
	GcalLamp           Field = "gcal_lamp"
	QAState            Field = "qa_state"
	CalibrationProgram Field = "calibration_program"
	Engineering        Field = "engineering"
	ProgramID          Field = "program_id"
	Object             Field = "object"
	ReleaseDate        Field = "release_date"
	PhotStandard       Field = "phot_standard"
)

// detail fields
const (
	Arm                 Field = "arm"
	DetectorName        Field = "detector_name"
	DetectorXBin        Field = "detector_x_bin"
	DetectorYBin        Field = "detector_y_bin"
	ReadSpeedSetting    Field = "read_speed_setting"
	GainSetting         Field = "gain_setting"
	AmpReadArea         Field = "amp_read_area"
	ArrayName           Field = "array_name"
	NodAndShuffle       Field = "nodandshuffle"
	NodCount            Field = "nod_count"
	NodPixels           Field = "nod_pixels"
	Prepared            Field = "prepared"
	OverscanTrimmed     Field = "overscan_trimmed"
	OverscanSubtracted  Field = "overscan_subtracted"
	ReadMode            Field = "read_mode"
	WellDepthSetting    Field = "well_depth_setting"
	DataSection         Field = "data_section"
	Wollaston           Field = "wollaston"
	AstrometricStandard Field = "astrometric_standard"
	WantBeforeArc       Field = "want_before_arc"
	PrismMotorSteps     Field = "prism_motor_steps"
)

type spec struct {
	table Table
	kind  Kind
}

var registry = map[Field]spec{
	Instrument:         {Header, Text},
	DataLabel:          {Header, Text},
	ObservationType:    {Header, Text},
	ObservationClass:   {Header, Text},
	ObservationID:      {Header, Text},
	Reduction:          {Header, Text},
	UTDateTime:         {Header, Time},
	Spectroscopy:       {Header, Flag},
	Mode:               {Header, Text},
	FilterName:         {Header, Text},
	Disperser:          {Header, Text},
	FocalPlaneMask:     {Header, Text},
	CentralWavelength:  {Header, Number},
	DetectorBinning:    {Header, Text},
	DetectorROISetting: {Header, Text},
	Camera:             {Header, Text},
	ExposureTime:       {Header, Number},
	Coadds:             {Header, Number},
	Elevation:          {Header, Number},
	CassRotatorPA:      {Header, Number},
	GcalLamp:           {Header, Text},
	QAState:            {Header, Text},
	CalibrationProgram: {Header, Flag},
	Engineering:        {Header, Flag},
	ProgramID:          {Header, Text},
	Object:             {Header, Text},
	ReleaseDate:        {Header, Time},
	PhotStandard:       {Header, Flag},

	Arm:                 {Detail, Text},
	DetectorName:        {Detail, Text},
	DetectorXBin:        {Detail, Number},
	DetectorYBin:        {Detail, Number},
	ReadSpeedSetting:    {Detail, Text},
	GainSetting:         {Detail, Text},
	AmpReadArea:         {Detail, Text},
	ArrayName:           {Detail, Text},
	NodAndShuffle:       {Detail, Flag},
	NodCount:            {Detail, Number},
	NodPixels:           {Detail, Number},
	Prepared:            {Detail, Flag},
	OverscanTrimmed:     {Detail, Flag},
	OverscanSubtracted:  {Detail, Flag},
	ReadMode:            {Detail, Text},
	WellDepthSetting:    {Detail, Text},
	DataSection:         {Detail, Text},
	Wollaston:           {Detail, Flag},
	AstrometricStandard: {Detail, Flag},
	WantBeforeArc:       {Detail, Flag},
	PrismMotorSteps:     {Detail, Number},
}

// Fields a detail record may carry for its arm although they are matched
// against the header column.
//
// Bundled frames record a per-arm exposure time.
var armOverrides = map[Field]struct{}{
	ExposureTime: {},
}

func (f Field) IsKnown() bool {
	_, ok := registry[f]
	return ok
}

func (f Field) Table() Table {
	return registry[f].table
}

func (f Field) Kind() Kind {
	return registry[f].kind
}

// Column is the column name of the field in its table.
func (f Field) Column() string {
	return string(f)
}

func (f Field) String() string {
	return string(f)
}

// OverridableByArm reports whether a detail record may hold a per-arm value
// for this header field.
func (f Field) OverridableByArm() bool {
	_, ok := armOverrides[f]
	return ok
}

// In returns known fields stored in the table, sorted by name.
func In(t Table) []Field {
	ret := []Field{}
	for f, s := range registry {
		if s.table == t {
			ret = append(ret, f)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// DetailColumns returns the columns of the detail table: detail fields and
// the per-arm overrides.
func DetailColumns() []Field {
	ret := In(Detail)
	for f := range armOverrides {
		ret = append(ret, f)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func AsField(s string) (Field, error) {
	f := Field(s)
	if !f.IsKnown() {
		return f, fmt.Errorf("unknown descriptor: %q", s)
	}
	return f, nil
}
