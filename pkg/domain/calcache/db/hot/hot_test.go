package hot

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/cmp"
	"github.com/fitsarchive/calassoc/pkg/domain"
	kcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
	"github.com/fitsarchive/calassoc/pkg/domain/calcache/db/inmemory"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EnvRedis names the redis used by tests, like "localhost:6379".
// Tests needing it are skipped when it is not set.
const EnvRedis = "CALASSOC_TEST_REDIS"

// counting counts lookups reaching the backing cache.
type counting struct {
	kcache.CacheInterface
	lookups atomic.Int32
}

func (c *counting) Lookup(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (domain.Cached, error) {
	c.lookups.Add(1)
	return c.CacheInterface.Lookup(ctx, target, caltype)
}

func entries(target domain.FrameID, cals ...domain.FrameID) []domain.CacheEntry {
	return domain.Rank(target, domain.Bias, cals)
}

func calsOf(c domain.Cached) []domain.FrameID {
	ret := make([]domain.FrameID, len(c.Entries))
	for i, e := range c.Entries {
		ret[i] = e.Cal
	}
	return ret
}

type fixture struct {
	client  *redis.Client
	backing *counting
	testee  *cache
}

func setup(t *testing.T) fixture {
	t.Helper()
	addr := os.Getenv(EnvRedis)
	if addr == "" {
		t.Skipf("%s is not set", EnvRedis)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := "calassoc-test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		ctx := context.Background()
		keys, err := client.Keys(ctx, prefix+"*").Result()
		if err == nil && len(keys) != 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	backing := &counting{CacheInterface: inmemory.New()}
	testee := New(Config{Prefix: prefix}, client, backing).(*cache)
	return fixture{client: client, backing: backing, testee: testee}
}

func (f fixture) lookup(t *testing.T, target domain.FrameID) domain.Cached {
	t.Helper()
	actual, err := f.testee.Lookup(context.Background(), target, nil)
	if err != nil {
		t.Fatal(err)
	}
	return actual
}

func TestLookup_ReadThrough(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if err := f.backing.Replace(ctx, 1, entries(1, 10, 11)); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if actual := calsOf(f.lookup(t, 1)); !cmp.SliceEq(actual, []domain.FrameID{10, 11}) {
			t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, []domain.FrameID{10, 11})
		}
	}
	if n := f.backing.lookups.Load(); n != 1 {
		t.Errorf("unmatch: backing lookups (actual, expected) = (%d, %d)", n, 1)
	}

	flat := domain.Flat
	actual, err := f.testee.Lookup(ctx, 1, &flat)
	if err != nil {
		t.Fatal(err)
	}
	if !actual.Fresh() || len(actual.Entries) != 0 {
		t.Errorf("unexpected flats: %+v", actual)
	}

	t.Run("targets never refreshed are not copied", func(t *testing.T) {
		before := f.backing.lookups.Load()
		f.lookup(t, 2)
		f.lookup(t, 2)
		if n := f.backing.lookups.Load() - before; n != 2 {
			t.Errorf("unmatch: backing lookups (actual, expected) = (%d, %d)", n, 2)
		}
	})
}

func TestWrites_Invalidate(t *testing.T) {
	for name, testcase := range map[string]struct {
		when func(ctx context.Context, testee *cache) error
		then []domain.FrameID
	}{
		"replace": {
			when: func(ctx context.Context, testee *cache) error {
				return testee.Replace(ctx, 1, entries(1, 12))
			},
			then: []domain.FrameID{12},
		},
		"invalidate": {
			when: func(ctx context.Context, testee *cache) error {
				return testee.Invalidate(ctx, 1)
			},
			then: []domain.FrameID{},
		},
		"drop": {
			when: func(ctx context.Context, testee *cache) error {
				return testee.Drop(ctx)
			},
			then: []domain.FrameID{},
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := setup(t)
			if err := f.testee.Replace(ctx, 1, entries(1, 10, 11)); err != nil {
				t.Fatal(err)
			}
			f.lookup(t, 1) // copied

			if err := testcase.when(ctx, f.testee); err != nil {
				t.Fatal(err)
			}
			if actual := calsOf(f.lookup(t, 1)); !cmp.SliceEq(actual, testcase.then) {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}

			for _, key := range []string{f.testee.writingKey(1), f.testee.droppingKey()} {
				if n, err := f.client.Get(ctx, key).Int(); err == nil && n != 0 {
					t.Errorf("%s is left %d", key, n)
				}
			}
		})
	}
}

func TestStore_RacingWriter(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if err := f.backing.Replace(ctx, 1, entries(1, 10)); err != nil {
		t.Fatal(err)
	}

	_, version, ok := f.testee.load(ctx, 1)
	if ok || version == "" {
		t.Fatalf("unexpected load: (version, ok) = (%q, %v)", version, ok)
	}
	old, err := f.backing.Lookup(ctx, 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	// a writer comes between reading the backing cache and storing the copy.
	if err := f.testee.Replace(ctx, 1, entries(1, 12)); err != nil {
		t.Fatal(err)
	}
	f.testee.store(ctx, 1, version, old)

	if _, err := f.client.Get(ctx, f.testee.dataKey(1)).Result(); !errors.Is(err, redis.Nil) {
		t.Errorf("outdated copy is stored: %v", err)
	}
	if actual := calsOf(f.lookup(t, 1)); !cmp.SliceEq(actual, []domain.FrameID{12}) {
		t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, []domain.FrameID{12})
	}
}

func TestLookup_UnfinishedWrite(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if err := f.testee.Replace(ctx, 1, entries(1, 10)); err != nil {
		t.Fatal(err)
	}
	f.lookup(t, 1) // copied

	// a writer wrote the backing cache, and failed to finish.
	if err := f.client.Incr(ctx, f.testee.writingKey(1)).Err(); err != nil {
		t.Fatal(err)
	}
	if err := f.backing.Replace(ctx, 1, entries(1, 12)); err != nil {
		t.Fatal(err)
	}

	before := f.backing.lookups.Load()
	for range 2 {
		if actual := calsOf(f.lookup(t, 1)); !cmp.SliceEq(actual, []domain.FrameID{12}) {
			t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, []domain.FrameID{12})
		}
	}
	if n := f.backing.lookups.Load() - before; n != 2 {
		t.Errorf("unmatch: backing lookups (actual, expected) = (%d, %d)", n, 2)
	}
}

func TestRedisUnreachable(t *testing.T) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	backing := inmemory.New()
	if err := backing.Replace(ctx, 1, entries(1, 10)); err != nil {
		t.Fatal(err)
	}
	testee := New(Config{Timeout: 500 * time.Millisecond}, client, backing)

	t.Run("lookups are served by the backing cache", func(t *testing.T) {
		actual, err := testee.Lookup(ctx, 1, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !cmp.SliceEq(calsOf(actual), []domain.FrameID{10}) {
			t.Errorf("unmatch: (actual, expected) = (%v, %v)", calsOf(actual), []domain.FrameID{10})
		}
	})

	for name, write := range map[string]func() error{
		"replace":    func() error { return testee.Replace(ctx, 1, entries(1, 12)) },
		"invalidate": func() error { return testee.Invalidate(ctx, 1) },
		"drop":       func() error { return testee.Drop(ctx) },
	} {
		t.Run(name+" is refused, leaving the backing cache", func(t *testing.T) {
			if err := write(); !domerr.IsTransient(err) {
				t.Errorf("expected transient error, got %v", err)
			}
			actual, err := backing.Lookup(ctx, 1, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !cmp.SliceEq(calsOf(actual), []domain.FrameID{10}) {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", calsOf(actual), []domain.FrameID{10})
			}
		})
	}
}
