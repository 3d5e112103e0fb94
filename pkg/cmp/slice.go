// Package cmp compares slices in tests.
package cmp

// SliceEq tells a and b have the same elements in the same order.
func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(x, y T) bool { return x == y })
}

// SliceEqWith is SliceEq with an equivalence given by pred.
func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !pred(a[i], b[i]) {
			return false
		}
	}
	return true
}

// SliceContentEq tells a and b have the same elements, in any order.
//
// Duplicates are counted:
//
//	SliceContentEq([]string{"bias", "flat"}, []string{"flat", "bias"})          // ==> true
//	SliceContentEq([]string{"bias", "bias", "flat"}, []string{"bias", "flat"})  // ==> false
func SliceContentEq[T comparable](a, b []T) bool {
	return SliceContentEqWith(a, b, func(x, y T) bool { return x == y })
}

// SliceContentEqWith is SliceContentEq with an equivalence given by equiv.
//
// Each element of b is paired with the first unpaired element of a
// equivalent to it.
func SliceContentEqWith[S, T any](a []S, b []T, equiv func(S, T) bool) bool {
	if len(a) != len(b) {
		return false
	}

	paired := make([]bool, len(a))
NEXT_B:
	for _, vb := range b {
		for i, va := range a {
			if paired[i] || !equiv(va, vb) {
				continue
			}
			paired[i] = true
			continue NEXT_B
		}
		return false
	}
	return true
}
