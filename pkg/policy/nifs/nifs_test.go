package nifs_test

import (
	"context"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/cmp"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/domain/frame/db/inmemory"
	"github.com/fitsarchive/calassoc/pkg/policy/nifs"
)

var t0 = time.Date(2019, 6, 2, 10, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func frame(id domain.FrameID, obstype string, dt time.Duration, h domain.Record, readMode string) domain.Frame {
	header := domain.Record{
		field.Instrument:        domain.Text("NIFS"),
		field.Reduction:         domain.Text("RAW"),
		field.QAState:           domain.Text("Pass"),
		field.ObservationType:   domain.Text(obstype),
		field.UTDateTime:        domain.Time(t0.Add(dt)),
		field.Spectroscopy:      domain.Bool(true),
		field.CentralWavelength: domain.Number(2.2),
		field.Disperser:         domain.Text("K_G5605"),
		field.FocalPlaneMask:    domain.Text("3.0_Mask_G5610"),
		field.FilterName:        domain.Text("HK_G0603"),
	}
	for k, v := range h {
		header[k] = v
	}
	return domain.Frame{
		ID:        id,
		Canonical: true,
		Header:    header,
		Details:   []domain.Record{{field.ReadMode: domain.Text(readMode)}},
	}
}

var science = domain.Record{
	field.ObservationClass: domain.Text("science"),
	field.Object:           domain.Text("NGC 4151"),
}

func ids(fs []domain.Frame) []domain.FrameID {
	ret := make([]domain.FrameID, len(fs))
	for i, f := range fs {
		ret[i] = f.ID
	}
	return ret
}

func lookup(t *testing.T, store *inmemory.Frames, target domain.Frame, c domain.Caltype) []domain.Frame {
	t.Helper()
	store.Put(target)
	testee := nifs.New()
	tgt, err := testee.Target(target, store)
	if err != nil {
		t.Fatal(err)
	}
	actual, err := testee.Lookup(context.Background(), tgt, c, 0)
	if err != nil {
		t.Fatal(err)
	}
	return actual
}

func TestFlat_DoesNotMatchReadMode(t *testing.T) {
	irhigh := domain.Record{field.GcalLamp: domain.Text("IRhigh")}
	store := inmemory.New(
		frame(20, "FLAT", -2*day, irhigh, "Faint Object"),
		frame(21, "FLAT", 12*day, domain.Record{field.GcalLamp: domain.Text("QH")}, "Faint Object"),
		frame(22, "FLAT", day, domain.Record{
			field.GcalLamp: domain.Text("IRhigh"), field.FilterName: domain.Text("JH_G0602"),
		}, "Faint Object"),
		frame(23, "FLAT", 2*time.Hour, domain.Record{field.GcalLamp: domain.Text("Off")}, "Faint Object"),
		frame(24, "FLAT", day, irhigh, "Bright Object"),
	)
	target := frame(1, "OBJECT", 0, science, "Faint Object")

	actual := lookup(t, store, target, domain.Flat)
	if expected := []domain.FrameID{24, 20}; !cmp.SliceEq(ids(actual), expected) {
		t.Errorf("unmatch: (actual, expected) = (%v, %v)", ids(actual), expected)
	}
}

func TestRonchiMask_HasNoTimeLimit(t *testing.T) {
	store := inmemory.New(
		frame(10, "RONCHI", -500*day, nil, "Bright Object"),
		frame(11, "RONCHI", -time.Hour, domain.Record{field.Disperser: domain.Text("J_G5603")}, "Bright Object"),
	)
	target := frame(1, "OBJECT", 0, science, "Faint Object")

	actual := lookup(t, store, target, domain.RonchiMask)
	if expected := []domain.FrameID{10}; !cmp.SliceEq(ids(actual), expected) {
		t.Errorf("unmatch: (actual, expected) = (%v, %v)", ids(actual), expected)
	}
}

func TestProcessedArc_IsNothing(t *testing.T) {
	store := inmemory.New(
		frame(30, "ARC", time.Hour, domain.Record{field.Reduction: domain.Text("PROCESSED_ARC")}, "Faint Object"),
	)
	target := frame(1, "OBJECT", 0, science, "Faint Object")

	if actual := lookup(t, store, target, domain.ProcessedArc); len(actual) != 0 {
		t.Errorf("unexpected arcs: %v", ids(actual))
	}
}

func TestApplicableCaltypes(t *testing.T) {
	for name, testcase := range map[string]struct {
		when domain.Frame
		then []domain.Caltype
	}{
		"science spectroscopy": {
			when: frame(1, "OBJECT", 0, science, "Faint Object"),
			then: []domain.Caltype{
				domain.Flat, domain.Arc, domain.ProcessedFlat, domain.RonchiMask, domain.TelluricStandard,
			},
		},
		"science imaging": {
			when: frame(1, "OBJECT", 0, domain.Record{
				field.ObservationClass: domain.Text("science"),
				field.Spectroscopy:     domain.Bool(false),
			}, "Faint Object"),
			then: []domain.Caltype{domain.Dark},
		},
		"partner calibration spectroscopy": {
			when: frame(1, "OBJECT", 0, domain.Record{
				field.ObservationClass: domain.Text("partnerCal"),
			}, "Faint Object"),
			then: []domain.Caltype{},
		},
		"lamp-on flat": {
			when: frame(1, "FLAT", 0, domain.Record{
				field.ObservationClass: domain.Text("dayCal"),
				field.GcalLamp:         domain.Text("IRhigh"),
			}, "Faint Object"),
			then: []domain.Caltype{domain.LampoffFlat},
		},
	} {
		t.Run(name, func(t *testing.T) {
			testee := nifs.New()
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
