package postgres

import (
	"context"

	kpool "github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool"
	dbInterface "github.com/fitsarchive/calassoc/pkg/domain/archive/db"
	kcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
	kpgcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db/postgres"
	dberr "github.com/fitsarchive/calassoc/pkg/domain/errors/dberrors/postgres"
	kframe "github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	kpgframe "github.com/fitsarchive/calassoc/pkg/domain/frame/db/postgres"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
	kpgqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db/postgres"
	kschema "github.com/fitsarchive/calassoc/pkg/domain/schema/db"
	kpgschema "github.com/fitsarchive/calassoc/pkg/domain/schema/db/postgres"
	xe "github.com/fitsarchive/calassoc/pkg/errors"
	"github.com/jackc/pgx/v4/pgxpool"
)

type archiveDBPostgres struct {
	pool   *pgxpool.Pool
	frame  kframe.FrameInterface
	cache  kcache.CacheInterface
	queue  kqueue.QueueInterface
	schema kschema.SchemaInterface
}

type Config struct {
	SchemaRepository string
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (dbInterface.ArchiveDatabase, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, dberr.Classify(xe.Wrap(err))
	}

	c := Config{}
	for _, option := range options {
		c = *option(&c)
	}

	p := kpool.Wrap(pool)
	var schema kschema.SchemaInterface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &archiveDBPostgres{
		pool:   pool,
		frame:  kpgframe.New(p),
		cache:  kpgcache.New(p),
		queue:  kpgqueue.New(p),
		schema: schema,
	}, nil
}

func (a *archiveDBPostgres) Frame() kframe.FrameInterface {
	return a.frame
}

func (a *archiveDBPostgres) Cache() kcache.CacheInterface {
	return a.cache
}

func (a *archiveDBPostgres) Queue() kqueue.QueueInterface {
	return a.queue
}

func (a *archiveDBPostgres) Schema() kschema.SchemaInterface {
	return a.schema
}

func (a *archiveDBPostgres) Close() error {
	a.pool.Close()
	return nil
}
