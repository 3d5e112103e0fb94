package igrins2_test

import (
	"context"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/cmp"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/domain/frame/db/inmemory"
	"github.com/fitsarchive/calassoc/pkg/policy/igrins2"
)

var t0 = time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func frame(id domain.FrameID, obstype string, dt time.Duration, h domain.Record) domain.Frame {
	header := domain.Record{
		field.Instrument:      domain.Text("IGRINS-2"),
		field.Reduction:       domain.Text("RAW"),
		field.QAState:         domain.Text("Pass"),
		field.ObservationType: domain.Text(obstype),
		field.UTDateTime:      domain.Time(t0.Add(dt)),
		field.Spectroscopy:    domain.Bool(true),
	}
	for k, v := range h {
		header[k] = v
	}
	return domain.Frame{ID: id, Canonical: true, Header: header}
}

func object(name string) domain.Record {
	return domain.Record{field.Object: domain.Text(name)}
}

func ids(fs []domain.Frame) []domain.FrameID {
	ret := make([]domain.FrameID, len(fs))
	for i, f := range fs {
		ret[i] = f.ID
	}
	return ret
}

func TestLookup(t *testing.T) {
	target := frame(1, "OBJECT", 0, domain.Record{
		field.ObservationClass: domain.Text("science"),
		field.Object:           domain.Text("TW Hya"),
	})
	store := inmemory.New(
		target,
		frame(10, "OBJECT", 3*time.Hour, object("Blank sky")),
		frame(11, "OBJECT", -time.Hour, object("Blank sky")),
		frame(12, "OBJECT", 10*time.Minute, object("HD 94660")),
		frame(20, "FLAT", -400*day, nil),
		frame(21, "FLAT", day, nil),
		frame(22, "FLAT", 2*time.Hour, domain.Record{field.Instrument: domain.Text("IGRINS")}),
	)

	for name, testcase := range map[string]struct {
		caltype domain.Caltype
		howmany int
		then    []domain.FrameID
	}{
		"the closest sky is the arc": {
			caltype: domain.Arc,
			then:    []domain.FrameID{11},
		},
		"more skies": {
			caltype: domain.Arc,
			howmany: 5,
			then:    []domain.FrameID{11, 10},
		},
		"flats have no time limit": {
			caltype: domain.Flat,
			then:    []domain.FrameID{21, 20},
		},
	} {
		t.Run(name, func(t *testing.T) {
			testee := igrins2.New()
			tgt, err := testee.Target(target, store)
			if err != nil {
				t.Fatal(err)
			}
			actual, err := testee.Lookup(context.Background(), tgt, testcase.caltype, testcase.howmany)
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
		"object": {
			when: frame(1, "OBJECT", 0, object("TW Hya")),
			then: []domain.Caltype{domain.Flat, domain.Arc},
		},
		"flat": {
			when: frame(1, "FLAT", 0, nil),
			then: []domain.Caltype{},
		},
	} {
		t.Run(name, func(t *testing.T) {
			testee := igrins2.New()
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
