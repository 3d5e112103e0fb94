// Package igrins2 is the calibration policy of IGRINS-2.
//
// IGRINS-2 keeps no detail records. Its arcs are sky frames.
package igrins2

import (
	"context"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	"github.com/fitsarchive/calassoc/pkg/policy"
	"github.com/fitsarchive/calassoc/pkg/query"
)

func New() *policy.Instrument {
	return &policy.Instrument{
		Name:  "IGRINS-2",
		Rules: applicable,
		Methods: map[domain.Caltype]policy.Method{
			domain.Flat: flat,
			domain.Arc:  arc,
			domain.BPM:  bpm,
		},
	}
}

func applicable(t policy.Target) []domain.Caltype {
	if t.ObservationType() == domain.ObsObject {
		return []domain.Caltype{domain.Flat, domain.Arc}
	}
	return nil
}

func bpm(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.BPM(t.Query(), processed).
		AddFilters(query.NotAfter()).
		MatchDescriptors(field.Instrument).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}

func flat(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return query.Flat(t.Query(), processed).
		MatchDescriptors(field.Instrument).
		All(ctx, policy.Howmany(howmany, processed, 30, 30))
}

func arc(ctx context.Context, t policy.Target, processed bool, howmany int) ([]domain.Frame, error) {
	return t.Query().
		ObservationType(domain.ObsObject).
		Object("Blank sky").
		MatchDescriptors(field.Instrument).
		All(ctx, policy.Howmany(howmany, processed, 1, 1))
}
