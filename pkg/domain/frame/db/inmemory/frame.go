// Package inmemory holds frames in memory.
//
// It evaluates calibration lookups with the same constraint model as the
// database does, and serves tests and dry runs.
package inmemory

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/fitsarchive/calassoc/pkg/domain"
	dberr "github.com/fitsarchive/calassoc/pkg/domain/errors/dberrors/postgres"
	"github.com/fitsarchive/calassoc/pkg/domain/frame"
	"github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	"github.com/fitsarchive/calassoc/pkg/query"
)

type Frames struct {
	mu     sync.RWMutex
	frames map[domain.FrameID]domain.Frame
}

var _ db.FrameInterface = &Frames{}

func New(frames ...domain.Frame) *Frames {
	f := &Frames{frames: map[domain.FrameID]domain.Frame{}}
	for _, fr := range frames {
		f.frames[fr.ID] = fr
	}
	return f
}

// Put adds or replaces a frame.
func (f *Frames) Put(fr domain.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[fr.ID] = fr
}

// Update modifies a frame in place.
func (f *Frames) Update(id domain.FrameID, modify func(*domain.Frame)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, ok := f.frames[id]
	if !ok {
		return dberr.Missing{Table: "frame", Identity: id.String()}
	}
	modify(&fr)
	f.frames[id] = fr
	return nil
}

func (f *Frames) sorted() []domain.Frame {
	ret := make([]domain.Frame, 0, len(f.frames))
	for _, fr := range f.frames {
		ret = append(ret, fr)
	}
	slices.SortFunc(ret, func(a, b domain.Frame) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return ret
}

func (f *Frames) Select(ctx context.Context, q query.Query) ([]domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return q.Apply(f.sorted()), nil
}

func (f *Frames) Get(ctx context.Context, id domain.FrameID) (domain.Frame, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fr, ok := f.frames[id]
	if !ok {
		return domain.Frame{}, dberr.Missing{Table: "frame", Identity: id.String()}
	}
	return fr, nil
}

func (f *Frames) GetMany(ctx context.Context, ids []domain.FrameID) ([]domain.Frame, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ret := make([]domain.Frame, 0, len(ids))
	for _, id := range ids {
		if fr, ok := f.frames[id]; ok {
			ret = append(ret, fr)
		}
	}
	return ret, nil
}

func (f *Frames) Find(ctx context.Context, selection string) ([]domain.Frame, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := frame.Filenames(selection)
	id, idErr := strconv.ParseInt(selection, 10, 64)
	ret := []domain.Frame{}
	for _, fr := range f.sorted() {
		if !fr.Canonical {
			continue
		}
		if slices.Contains(names, fr.Filename) ||
			fr.DataLabel() == selection ||
			(idErr == nil && fr.ID == domain.FrameID(id)) {
			ret = append(ret, fr)
		}
	}
	return ret, nil
}

func (f *Frames) Eligible(ctx context.Context, filter db.EligibleFilter) ([]db.FrameRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	ret := []db.FrameRef{}
	for _, fr := range f.sorted() {
		if !fr.Eligible() {
			continue
		}
		if filter.Instrument != "" && fr.Instrument() != filter.Instrument {
			continue
		}
		ut, _ := fr.UTDateTime()
		if !filter.Since.IsZero() && ut.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !ut.Before(filter.Until) {
			continue
		}
		ret = append(ret, db.FrameRef{ID: fr.ID, Filename: fr.Filename})
	}
	return ret, nil
}
