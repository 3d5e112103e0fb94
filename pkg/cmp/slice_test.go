package cmp_test

import (
	"strings"
	"testing"

	"github.com/fitsarchive/calassoc/pkg/cmp"
)

func TestSliceEq(t *testing.T) {
	for name, testcase := range map[string]struct {
		a, b []int
		then bool
	}{
		"same":            {a: []int{3, 1, 2}, b: []int{3, 1, 2}, then: true},
		"both empty":      {a: []int{}, b: nil, then: true},
		"ordering":        {a: []int{1, 2, 3}, b: []int{3, 2, 1}, then: false},
		"different sizes": {a: []int{1, 2}, b: []int{1, 2, 3}, then: false},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := cmp.SliceEq(testcase.a, testcase.b); actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}
		})
	}
}

func TestSliceContentEq(t *testing.T) {
	for name, testcase := range map[string]struct {
		a, b []string
		then bool
	}{
		"same":            {a: []string{"bias", "flat"}, b: []string{"bias", "flat"}, then: true},
		"ordering":        {a: []string{"bias", "flat", "arc"}, b: []string{"arc", "bias", "flat"}, then: true},
		"duplicates":      {a: []string{"bias", "bias", "flat"}, b: []string{"bias", "flat", "flat"}, then: false},
		"missing":         {a: []string{"bias", "flat"}, b: []string{"bias", "dark"}, then: false},
		"different sizes": {a: []string{"bias"}, b: []string{"bias", "bias"}, then: false},
		"empty and nil":   {a: []string{}, b: nil, then: true},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := cmp.SliceContentEq(testcase.a, testcase.b); actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}
		})
	}
}

func TestSliceContentEqWith(t *testing.T) {
	a := []string{"BIAS", "Flat"}
	b := []string{"flat", "bias"}
	if !cmp.SliceContentEqWith(a, b, strings.EqualFold) {
		t.Errorf("%v and %v should be equivalent", a, b)
	}
	if cmp.SliceContentEqWith(a, []string{"bias", "bias"}, strings.EqualFold) {
		t.Errorf("an element should not be paired twice")
	}
}
