package query

import (
	"slices"

	"github.com/fitsarchive/calassoc/pkg/domain"
)

// Merge unions results of queries, removing duplicates, and returns up to
// limit of them ordered by the terms of the first query.
//
// Queries of arms may prefer different values of a field. A frame equal to
// the preferred value of any of them is preferred.
//
// results[i] is the result of queries[i].
func Merge(queries []Query, results [][]domain.Frame, limit int) []domain.Frame {
	if limit <= 0 || len(queries) == 0 {
		return []domain.Frame{}
	}

	orders := []Order{}
	for i, o := range queries[0].Orders {
		if o.Kind == OrderPreferEqual {
			o.Alternatives = slices.Clone(o.Alternatives)
			for _, q := range queries[1:] {
				if i < len(q.Orders) && q.Orders[i].Kind == OrderPreferEqual && q.Orders[i].Field == o.Field {
					o.Alternatives = append(o.Alternatives, q.Orders[i].Value)
				}
			}
		}
		orders = append(orders, o)
	}

	seen := map[domain.FrameID]struct{}{}
	ret := []domain.Frame{}
	for _, rs := range results {
		for _, f := range rs {
			if _, ok := seen[f.ID]; ok {
				continue
			}
			seen[f.ID] = struct{}{}
			ret = append(ret, f)
		}
	}
	slices.SortStableFunc(ret, func(a, b domain.Frame) int { return Compare(orders, a, b) })
	if len(ret) > limit {
		ret = ret[:limit]
	}
	return ret
}
