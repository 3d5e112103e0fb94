package db

import (
	"context"

	"github.com/fitsarchive/calassoc/pkg/domain"
)

// CacheInterface materializes associations of targets.
type CacheInterface interface {
	// Replace rewrites all cached associations of the target.
	//
	// Existing rows of the target are removed, including those of caltypes
	// not in entries. Readers see either the old rows or the new ones.
	//
	// Args
	//
	// - context.Context
	//
	// - domain.FrameID: the target
	//
	// - []domain.CacheEntry: new rows. Each entry must have the target as Target.
	//
	// Returns
	//
	// - error
	Replace(ctx context.Context, target domain.FrameID, entries []domain.CacheEntry) error

	// Lookup returns cached associations of the target.
	//
	// When caltype is not nil, only the rows of it are returned.
	Lookup(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (domain.Cached, error)

	// Invalidate forgets cached associations of targets, so that they are
	// computed again.
	Invalidate(ctx context.Context, targets ...domain.FrameID) error

	// Drop removes everything cached.
	Drop(ctx context.Context) error
}
