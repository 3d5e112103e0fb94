// Package inmemory caches associations in memory.
package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
)

type cached struct {
	refreshed time.Time
	entries   []domain.CacheEntry
}

type Cache struct {
	mu      sync.RWMutex
	now     func() time.Time
	targets map[domain.FrameID]cached
}

var _ db.CacheInterface = &Cache{}

func New() *Cache {
	return &Cache{now: time.Now, targets: map[domain.FrameID]cached{}}
}

func (c *Cache) Replace(ctx context.Context, target domain.FrameID, entries []domain.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(target, entries); err != nil {
		return err
	}
	es := slices.Clone(entries)
	domain.SortEntries(es)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[target] = cached{refreshed: c.now(), entries: es}
	return nil
}

// validate checks rows are unique on (target, caltype, cal).
func validate(target domain.FrameID, entries []domain.CacheEntry) error {
	type key struct {
		caltype domain.Caltype
		cal     domain.FrameID
	}
	seen := map[key]struct{}{}
	for _, e := range entries {
		if e.Target != target {
			return fmt.Errorf("cache entry for %s is given to %s", e.Target, target)
		}
		k := key{caltype: e.Caltype, cal: e.Cal}
		if _, ok := seen[k]; ok {
			return fmt.Errorf("duplicated cache entry: %s %s %s", target, e.Caltype, e.Cal)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func (c *Cache) Lookup(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (domain.Cached, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cached{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	cc, ok := c.targets[target]
	if !ok {
		return domain.Cached{Entries: []domain.CacheEntry{}}, nil
	}
	ret := domain.Cached{Refreshed: cc.refreshed, Entries: slices.Clone(cc.entries)}
	if caltype != nil {
		ret.Entries = ret.Caltype(*caltype)
	}
	return ret, nil
}

func (c *Cache) Invalidate(ctx context.Context, targets ...domain.FrameID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range targets {
		delete(c.targets, t)
	}
	return nil
}

func (c *Cache) Drop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets = map[domain.FrameID]cached{}
	return nil
}
