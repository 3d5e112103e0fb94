package domain_test

import (
	"testing"

	"github.com/fitsarchive/calassoc/pkg/domain"
)

func TestReduction_IsKnown(t *testing.T) {
	for name, testcase := range map[string]struct {
		when domain.Reduction
		then bool
	}{
		"raw":                {when: "RAW", then: true},
		"processed telluric": {when: "PROCESSED_TELLURIC", then: true},
		"processed standard": {when: "PROCESSED_STANDARD", then: true},
		"processed bpm":      {when: domain.ProcessedBPMState, then: true},
		"lower case":         {when: "processed_telluric", then: false},
		"unknown":            {when: "PROCESSED_SKY", then: false},
		"empty":              {when: "", then: false},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := testcase.when.IsKnown(); actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}
		})
	}
}
