package archive

import (
	"context"
	"errors"

	"github.com/fitsarchive/calassoc/pkg/configs/calassoc"
	"github.com/fitsarchive/calassoc/pkg/domain/archive/db/postgres"
	"github.com/fitsarchive/calassoc/pkg/domain/calcache"
	"github.com/fitsarchive/calassoc/pkg/domain/calcache/db/hot"
	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/fitsarchive/calassoc/pkg/domain/frame"
	"github.com/fitsarchive/calassoc/pkg/domain/queue"
	"github.com/fitsarchive/calassoc/pkg/domain/schema"
	"github.com/fitsarchive/calassoc/pkg/utils/retry"
)

type Archive interface {
	Config() *calassoc.Config

	Frame() frame.Interface
	Cache() calcache.Interface
	Queue() queue.Interface
	Schema() schema.Interface

	Close() error
}

type archive struct {
	config *calassoc.Config

	frame  frame.Interface
	cache  calcache.Interface
	queue  queue.Interface
	schema schema.Interface

	closers []func() error
}

// New connects to the database, and to redis when the hot cache is configured.
func New(
	ctx context.Context,
	config *calassoc.Config,
	options ...Option,
) (Archive, error) {
	opt := &_options{}
	for _, o := range options {
		o(opt)
	}

	pg, err := postgres.New(ctx, config.Database().URL(), opt.pg...)
	if err != nil {
		return nil, err
	}
	closers := []func() error{pg.Close}

	cache := pg.Cache()
	if hc := config.HotCache(); hc != nil {
		hcache, closeHot, err := hot.Connect(ctx, hot.Config{
			Address:  hc.Address(),
			Password: hc.Password(),
			Database: hc.Database(),
			Prefix:   hc.Prefix(),
			TTL:      hc.TTL(),
			Timeout:  hc.Timeout(),
		}, cache)
		if err != nil {
			pg.Close()
			return nil, err
		}
		cache = hcache
		closers = append(closers, closeHot)
	}

	return &archive{
		config: config,

		frame:  frame.New(pg.Frame()),
		cache:  calcache.New(cache),
		queue:  queue.New(pg.Queue()),
		schema: schema.New(pg.Schema()),

		closers: closers,
	}, nil
}

// Connect is New retried with backoff while connecting fails transiently.
func Connect(
	ctx context.Context,
	config *calassoc.Config,
	backoff retry.Backoff,
	options ...Option,
) (Archive, error) {
	return retry.Blocking(ctx, backoff, func() (Archive, error) {
		a, err := New(ctx, config, options...)
		if err != nil && domerr.IsTransient(err) {
			return nil, errors.Join(retry.ErrRetry, err)
		}
		return a, err
	})
}

type Option func(*_options)

type _options struct {
	pg []postgres.Option
}

func WithSchemaRepository(repository string) Option {
	return func(o *_options) {
		o.pg = append(o.pg, postgres.WithSchemaRepository(repository))
	}
}

func (a *archive) Config() *calassoc.Config {
	return a.config
}

func (a *archive) Frame() frame.Interface {
	return a.frame
}

func (a *archive) Cache() calcache.Interface {
	return a.cache
}

func (a *archive) Queue() queue.Interface {
	return a.queue
}

func (a *archive) Schema() schema.Interface {
	return a.schema
}

func (a *archive) Close() error {
	errs := []error{}
	for i := len(a.closers) - 1; 0 <= i; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
