package domain

import (
	"slices"
	"time"
)

// CacheEntry is one cached association row.
type CacheEntry struct {
	Target  FrameID
	Caltype Caltype
	Cal     FrameID
	Rank    int
}

// Rank numbers the calibrations of a caltype for the cache.
//
// Pinned caltypes keep only the first calibration, at rank -1.
func Rank(target FrameID, caltype Caltype, cals []FrameID) []CacheEntry {
	if caltype.IsPinned() {
		if len(cals) == 0 {
			return nil
		}
		return []CacheEntry{{Target: target, Caltype: caltype, Cal: cals[0], Rank: -1}}
	}
	ret := make([]CacheEntry, 0, len(cals))
	seen := map[FrameID]struct{}{}
	for _, c := range cals {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		ret = append(ret, CacheEntry{Target: target, Caltype: caltype, Cal: c, Rank: len(ret)})
	}
	return ret
}

// Cached is what the cache holds for a target.
type Cached struct {
	// Refreshed is when the entries are written. It is zero when the target
	// has never been refreshed.
	Refreshed time.Time

	// Entries are ordered by caltype, then by rank.
	Entries []CacheEntry
}

// Fresh reports whether the target has been refreshed at all.
func (c Cached) Fresh() bool {
	return !c.Refreshed.IsZero()
}

// Caltype returns entries of the caltype.
func (c Cached) Caltype(caltype Caltype) []CacheEntry {
	ret := []CacheEntry{}
	for _, e := range c.Entries {
		if e.Caltype == caltype {
			ret = append(ret, e)
		}
	}
	return ret
}

// SortEntries sorts cache entries by caltype in report order, then by rank.
func SortEntries(es []CacheEntry) {
	slices.SortStableFunc(es, func(a, b CacheEntry) int {
		if c := compareCaltypes(a.Caltype, b.Caltype); c != 0 {
			return c
		}
		return a.Rank - b.Rank
	})
}
