package nici_test

import (
	"context"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/cmp"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/domain/frame/db/inmemory"
	"github.com/fitsarchive/calassoc/pkg/policy/nici"
)

var t0 = time.Date(2010, 12, 17, 3, 0, 0, 0, time.UTC)

func frame(id domain.FrameID, obstype string, dt time.Duration, h domain.Record) domain.Frame {
	header := domain.Record{
		field.Instrument:      domain.Text("NICI"),
		field.Reduction:       domain.Text("RAW"),
		field.QAState:         domain.Text("Pass"),
		field.ObservationType: domain.Text(obstype),
		field.UTDateTime:      domain.Time(t0.Add(dt)),
		field.Spectroscopy:    domain.Bool(false),
		field.ExposureTime:    domain.Number(30),
		field.FilterName:      domain.Text("CH4-H4%S_G0743+CH4-H4%L_G0740"),
		field.FocalPlaneMask:  domain.Text("0.32_Mask_G5107"),
		field.Disperser:       domain.Text("H-50/50_G0733"),
	}
	for k, v := range h {
		header[k] = v
	}
	return domain.Frame{ID: id, Canonical: true, Header: header}
}

func lamp(name string) domain.Record {
	return domain.Record{field.GcalLamp: domain.Text(name)}
}

var science = domain.Record{
	field.ObservationClass: domain.Text("science"),
	field.Object:           domain.Text("HD 100546"),
}

func ids(fs []domain.Frame) []domain.FrameID {
	ret := make([]domain.FrameID, len(fs))
	for i, f := range fs {
		ret[i] = f.ID
	}
	return ret
}

func TestLookup(t *testing.T) {
	store := inmemory.New(
		// darks
		frame(10, "DARK", -2*time.Hour, domain.Record{field.ExposureTime: domain.Number(30.005)}),
		frame(11, "DARK", -time.Hour, domain.Record{field.ExposureTime: domain.Number(30.02)}),
		frame(12, "DARK", 20*time.Hour, nil),
		frame(13, "DARK", 25*time.Hour, nil),
		// flats
		frame(20, "FLAT", 3*time.Hour, lamp("IRhigh")),
		frame(21, "FLAT", 30*time.Minute, lamp("Off")),
		frame(22, "FLAT", 2*time.Hour, lamp("IRhigh")),
		frame(23, "FLAT", -time.Hour, func() domain.Record {
			r := lamp("IRhigh")
			r[field.FocalPlaneMask] = domain.Text("0.22_Mask_G5108")
			return r
		}()),
		frame(24, "FLAT", -30*time.Hour, lamp("IRhigh")),
		frame(25, "FLAT", 90*time.Minute, lamp("Off")),
	)

	for name, testcase := range map[string]struct {
		target  domain.Frame
		caltype domain.Caltype
		then    []domain.FrameID
	}{
		"darks within a day and 0.01 seconds": {
			target:  frame(1, "OBJECT", 0, science),
			caltype: domain.Dark,
			then:    []domain.FrameID{10, 12},
		},
		"lamp-on flats of the same optics within a day": {
			target:  frame(1, "OBJECT", 0, science),
			caltype: domain.Flat,
			then:    []domain.FrameID{22, 20},
		},
		"lamp-off flats within an hour": {
			target:  frame(2, "FLAT", 0, lamp("IRhigh")),
			caltype: domain.LampoffFlat,
			then:    []domain.FrameID{21},
		},
	} {
		t.Run(name, func(t *testing.T) {
			testee := nici.New()
			tgt, err := testee.Target(testcase.target, store)
			if err != nil {
				t.Fatal(err)
			}
			actual, err := testee.Lookup(context.Background(), tgt, testcase.caltype, 0)
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
		when domain.Frame
		then []domain.Caltype
	}{
		"science": {
			when: frame(1, "OBJECT", 0, science),
			then: []domain.Caltype{domain.Dark, domain.Flat, domain.ProcessedBPM},
		},
		"acquisition": {
			when: frame(1, "OBJECT", 0, domain.Record{field.ObservationClass: domain.Text("acq")}),
			then: []domain.Caltype{domain.ProcessedBPM},
		},
		"lamp-on flat": {
			when: frame(1, "FLAT", 0, lamp("IRhigh")),
			then: []domain.Caltype{domain.LampoffFlat, domain.ProcessedBPM},
		},
		"lamp-off flat": {
			when: frame(1, "FLAT", 0, lamp("Off")),
			then: []domain.Caltype{domain.ProcessedBPM},
		},
		"bad pixel mask": {
			when: frame(1, "BPM", 0, nil),
			then: []domain.Caltype{},
		},
	} {
		t.Run(name, func(t *testing.T) {
			testee := nici.New()
			tgt, err := testee.Target(testcase.when, inmemory.New())
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
