package frame

import (
	"slices"
	"strings"

	"github.com/fitsarchive/calassoc/pkg/domain"
)

// Pick chooses one frame among frames matching a selection.
//
// The frame with the highest-sorting filename wins. ambiguous is true when
// more than one frame matched.
func Pick(frames []domain.Frame) (picked domain.Frame, ambiguous bool, ok bool) {
	if len(frames) == 0 {
		return domain.Frame{}, false, false
	}
	best := slices.MaxFunc(frames, func(a, b domain.Frame) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	return best, len(frames) > 1, true
}

// Filenames returns candidate filenames a selection may stand for.
//
// "N20240301S0001" stands for itself and the name with ".fits" and
// ".fits.bz2" suffixes.
func Filenames(selection string) []string {
	names := []string{selection}
	base := strings.TrimSuffix(selection, ".bz2")
	if base != selection {
		names = append(names, base)
	}
	if !strings.HasSuffix(base, ".fits") {
		names = append(names, base+".fits", base+".fits.bz2")
	} else {
		names = append(names, base+".bz2")
	}
	slices.Sort(names)
	return slices.Compact(names)
}
