// Package hot puts a redis tier in front of the association cache.
//
// Reads go through redis. Writes are announced in redis before they go to
// the backing cache. When done, they bump a generation counter of the target,
// so that redis copies written before are never served again.
//
// While a write is announced and not finished, redis is bypassed for the
// target. A write that failed to finish leaves it so, and its reads go to
// the backing cache. Writes are refused while redis is unreachable.
//
// Populating redis is done under WATCH of the counters: when a writer
// races, the copy is not stored.
package hot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	kcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	// Address of redis, like "localhost:6379"
	Address  string
	Password string
	Database int

	// Prefix is prepended to all keys.
	Prefix string

	// TTL of copies in redis. 0 means no expiration.
	TTL time.Duration

	// Timeout of each redis operation.
	Timeout time.Duration
}

type cache struct {
	cfg     Config
	client  redis.UniversalClient
	backing kcache.CacheInterface
}

// Connect connects to redis and wraps the backing cache.
func Connect(ctx context.Context, cfg Config, backing kcache.CacheInterface) (kcache.CacheInterface, func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, nil, domerr.Transient(fmt.Errorf("failed to connect to redis: %w", err))
	}
	return New(cfg, client, backing), client.Close, nil
}

func New(cfg Config, client redis.UniversalClient, backing kcache.CacheInterface) kcache.CacheInterface {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &cache{cfg: cfg, client: client, backing: backing}
}

func (c *cache) generationKey(target domain.FrameID) string {
	return c.cfg.Prefix + "gen:" + target.String()
}

func (c *cache) epochKey() string {
	return c.cfg.Prefix + "epoch"
}

// writingKey counts unfinished writes of the target.
func (c *cache) writingKey(target domain.FrameID) string {
	return c.cfg.Prefix + "writing:" + target.String()
}

// droppingKey counts unfinished drops.
func (c *cache) droppingKey() string {
	return c.cfg.Prefix + "dropping"
}

func (c *cache) dataKey(target domain.FrameID) string {
	return c.cfg.Prefix + "assoc:" + target.String()
}

type entry struct {
	Caltype string `json:"caltype"`
	Cal     int64  `json:"cal"`
	Rank    int    `json:"rank"`
}

type copied struct {
	Version   string    `json:"version"`
	Refreshed time.Time `json:"refreshed"`
	Entries   []entry   `json:"entries"`
}

func toCopy(version string, cached domain.Cached) copied {
	ret := copied{Version: version, Refreshed: cached.Refreshed, Entries: []entry{}}
	for _, e := range cached.Entries {
		ret.Entries = append(ret.Entries, entry{Caltype: string(e.Caltype), Cal: int64(e.Cal), Rank: e.Rank})
	}
	return ret
}

func (cp copied) cached(target domain.FrameID) domain.Cached {
	ret := domain.Cached{Refreshed: cp.Refreshed, Entries: []domain.CacheEntry{}}
	for _, e := range cp.Entries {
		ret.Entries = append(ret.Entries, domain.CacheEntry{
			Target: target, Caltype: domain.Caltype(e.Caltype), Cal: domain.FrameID(e.Cal), Rank: e.Rank,
		})
	}
	return ret
}

// version of copies of the target, composed of the global epoch and the
// target's generation.
//
// busy is true while a write of the target or a drop is unfinished.
func (c *cache) version(ctx context.Context, getter redis.Cmdable, target domain.FrameID) (version string, busy bool, err error) {
	vals, err := getter.MGet(
		ctx, c.epochKey(), c.generationKey(target), c.writingKey(target), c.droppingKey(),
	).Result()
	if err != nil {
		return "", false, err
	}
	v := func(x any) string {
		if s, ok := x.(string); ok {
			return s
		}
		return "0"
	}
	busy = v(vals[2]) != "0" || v(vals[3]) != "0"
	return v(vals[0]) + "." + v(vals[1]), busy, nil
}

func (c *cache) Lookup(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (domain.Cached, error) {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cp, version, ok := c.load(rctx, target)
	if ok {
		return filter(cp.cached(target), caltype), nil
	}

	cached, err := c.backing.Lookup(ctx, target, nil)
	if err != nil {
		return domain.Cached{}, err
	}
	if cached.Fresh() && version != "" {
		c.store(rctx, target, version, cached)
	}
	return filter(cached, caltype), nil
}

func filter(cached domain.Cached, caltype *domain.Caltype) domain.Cached {
	if caltype == nil {
		return cached
	}
	return domain.Cached{Refreshed: cached.Refreshed, Entries: cached.Caltype(*caltype)}
}

// load reads a valid copy, and the version copies should have.
//
// Redis failures are misses. version is empty when redis is unreachable or
// busy; copies are not to be stored then.
func (c *cache) load(ctx context.Context, target domain.FrameID) (copied, string, bool) {
	version, busy, err := c.version(ctx, c.client, target)
	if err != nil || busy {
		return copied{}, "", false
	}
	data, err := c.client.Get(ctx, c.dataKey(target)).Bytes()
	if err != nil {
		return copied{}, version, false
	}
	var cp copied
	if err := json.Unmarshal(data, &cp); err != nil || cp.Version != version {
		return copied{}, version, false
	}
	return cp, version, true
}

// store writes a copy read from the backing cache at the version.
//
// When the version has changed since, or a writer has come, the copy may be
// outdated and is not stored. Failures only lose the copy.
func (c *cache) store(ctx context.Context, target domain.FrameID, version string, cached domain.Cached) {
	data, err := json.Marshal(toCopy(version, cached))
	if err != nil {
		return
	}
	watch := []string{c.epochKey(), c.generationKey(target), c.writingKey(target), c.droppingKey()}
	_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, busy, err := c.version(ctx, tx, target)
		if err != nil {
			return err
		}
		if busy || current != version {
			return redis.TxFailedErr
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.dataKey(target), data, c.cfg.TTL)
			return nil
		})
		return err
	}, watch...)
}

func (c *cache) Replace(ctx context.Context, target domain.FrameID, entries []domain.CacheEntry) error {
	return c.write(ctx, []domain.FrameID{target}, func() error {
		return c.backing.Replace(ctx, target, entries)
	})
}

func (c *cache) Invalidate(ctx context.Context, targets ...domain.FrameID) error {
	if len(targets) == 0 {
		return c.backing.Invalidate(ctx)
	}
	return c.write(ctx, targets, func() error {
		return c.backing.Invalidate(ctx, targets...)
	})
}

func unreachable(err error) error {
	return fmt.Errorf("%w: failed to invalidate hot cache: %w", domerr.ErrTransient, err)
}

// write announces writes of the targets, runs do, and finishes them.
func (c *cache) write(ctx context.Context, targets []domain.FrameID, do func() error) error {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	begin := c.client.TxPipeline()
	for _, t := range targets {
		begin.Incr(rctx, c.writingKey(t))
	}
	if _, err := begin.Exec(rctx); err != nil {
		return unreachable(err)
	}

	werr := do()

	fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer fcancel()
	finish := c.client.TxPipeline()
	for _, t := range targets {
		finish.Incr(fctx, c.generationKey(t))
		finish.Del(fctx, c.dataKey(t))
		finish.Decr(fctx, c.writingKey(t))
	}
	_, ferr := finish.Exec(fctx)

	if werr != nil {
		return werr
	}
	if ferr != nil {
		return unreachable(ferr)
	}
	return nil
}

func (c *cache) Drop(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if err := c.client.Incr(rctx, c.droppingKey()).Err(); err != nil {
		return unreachable(err)
	}

	derr := c.backing.Drop(ctx)

	fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer fcancel()
	finish := c.client.TxPipeline()
	finish.Incr(fctx, c.epochKey())
	finish.Decr(fctx, c.droppingKey())
	_, ferr := finish.Exec(fctx)

	if derr != nil {
		return derr
	}
	if ferr != nil {
		return unreachable(ferr)
	}
	return nil
}
