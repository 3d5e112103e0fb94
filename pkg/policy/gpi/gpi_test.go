package gpi_test

import (
	"context"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/cmp"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/domain/frame/db/inmemory"
	"github.com/fitsarchive/calassoc/pkg/policy/gpi"
)

var t0 = time.Date(2018, 9, 21, 4, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func frame(id domain.FrameID, h domain.Record) domain.Frame {
	header := domain.Record{
		field.Instrument:   domain.Text("GPI"),
		field.Reduction:    domain.Text("RAW"),
		field.QAState:      domain.Text("Pass"),
		field.UTDateTime:   domain.Time(t0),
		field.Spectroscopy: domain.Bool(true),
		field.Disperser:    domain.Text("DISP_PRISM_G6262"),
		field.FilterName:   domain.Text("IFSFILT_H_G1213"),
		field.ExposureTime: domain.Number(60),
	}
	for k, v := range h {
		header[k] = v
	}
	return domain.Frame{ID: id, Canonical: true, Header: header}
}

func dark(id domain.FrameID, dt time.Duration, exptime float64) domain.Frame {
	return frame(id, domain.Record{
		field.ObservationType: domain.Text("DARK"),
		field.UTDateTime:      domain.Time(t0.Add(dt)),
		field.ExposureTime:    domain.Number(exptime),
	})
}

func ids(fs []domain.Frame) []domain.FrameID {
	ret := make([]domain.FrameID, len(fs))
	for i, f := range fs {
		ret[i] = f.ID
	}
	return ret
}

func TestDark(t *testing.T) {
	target := frame(1, domain.Record{
		field.ObservationType:  domain.Text("OBJECT"),
		field.ObservationClass: domain.Text("science"),
	})
	store := inmemory.New(
		target,
		dark(10, -10*day, 55),
		dark(11, 2*day, 120),
		dark(12, 30*day, 68),
		dark(13, 400*day, 60),
	)

	testee := gpi.New()
	tgt, err := testee.Target(target, store)
	if err != nil {
		t.Fatal(err)
	}

	for name, testcase := range map[string]struct {
		howmany int
		then    []domain.FrameID
	}{
		"default": {howmany: 0, then: []domain.FrameID{10}},
		"more":    {howmany: 5, then: []domain.FrameID{10, 12}},
	} {
		t.Run(name, func(t *testing.T) {
			actual, err := testee.Lookup(context.Background(), tgt, domain.Dark, testcase.howmany)
			if err != nil {
				t.Fatal(err)
			}
			if !cmp.SliceEq(ids(actual), testcase.then) {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", ids(actual), testcase.then)
			}
		})
	}
}

func TestApplicableCaltypes(t *testing.T) {
	for name, testcase := range map[string]struct {
		when domain.Record
		then []domain.Caltype
	}{
		"spectroscopy": {
			when: domain.Record{
				field.ObservationType:  domain.Text("OBJECT"),
				field.ObservationClass: domain.Text("science"),
			},
			then: []domain.Caltype{
				domain.Dark, domain.Arc, domain.Telluric, domain.AstrometricStandard, domain.ProcessedBPM,
			},
		},
		"polarimetry": {
			when: domain.Record{
				field.ObservationType:  domain.Text("OBJECT"),
				field.ObservationClass: domain.Text("science"),
				field.Spectroscopy:     domain.Bool(false),
			},
			then: []domain.Caltype{
				domain.Dark, domain.PolarizationStd, domain.AstrometricStandard, domain.PolarizationFlat,
				domain.ProcessedBPM,
			},
		},
		"acquisition": {
			when: domain.Record{
				field.ObservationType:  domain.Text("OBJECT"),
				field.ObservationClass: domain.Text("acq"),
			},
			then: []domain.Caltype{domain.ProcessedBPM},
		},
		"bad pixel mask": {
			when: domain.Record{field.ObservationType: domain.Text("BPM")},
			then: []domain.Caltype{},
		},
	} {
		t.Run(name, func(t *testing.T) {
			testee := gpi.New()
			tgt, err := testee.Target(frame(1, testcase.when), inmemory.New())
			if err != nil {
				t.Fatal(err)
			}
			actual := testee.ApplicableCaltypes(tgt)
			if !cmp.SliceEq(actual, testcase.then) {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}
		})
	}
}
