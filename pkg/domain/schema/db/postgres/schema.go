package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	kpool "github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool"
	dberr "github.com/fitsarchive/calassoc/pkg/domain/errors/dberrors/postgres"
	kschema "github.com/fitsarchive/calassoc/pkg/domain/schema/db"
	xe "github.com/fitsarchive/calassoc/pkg/errors"
	"github.com/fsnotify/fsnotify"
)

// upgraders of the same database take this advisory lock.
const upgradeLock int64 = 0x63616c617373 // "calass"

type pgSchema struct {
	pool       kpool.Pool
	repository string
	poll       time.Duration
}

type Option func(*pgSchema)

// WithPollInterval sets how often Context looks at the version in the
// database. The default is a minute.
func WithPollInterval(d time.Duration) Option {
	return func(s *pgSchema) { s.poll = d }
}

// New returns a schema read from the repository directory.
//
// The repository has a directory per version, named by the version number.
// Each of them holds .sql files, run in lexical order.
func New(pool kpool.Pool, repository string, options ...Option) kschema.SchemaInterface {
	s := &pgSchema{pool: pool, repository: repository, poll: time.Minute}
	for _, o := range options {
		o(s)
	}
	return s
}

// migration is one version directory in the repository.
type migration struct {
	version int
	files   []string
}

func (s *pgSchema) migrations() ([]migration, error) {
	entries, err := os.ReadDir(s.repository)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	ret := []migration{}
	for _, e := range entries {
		v, err := strconv.Atoi(e.Name())
		if !e.IsDir() || err != nil || v <= 0 {
			continue
		}
		sqls, err := filepath.Glob(filepath.Join(s.repository, e.Name(), "*.sql"))
		if err != nil {
			return nil, xe.Wrap(err)
		}
		slices.Sort(sqls)
		ret = append(ret, migration{version: v, files: sqls})
	}
	slices.SortFunc(ret, func(a, b migration) int { return a.version - b.version })
	return ret, nil
}

func (m migration) apply(ctx context.Context, tx kpool.Queryer) error {
	for _, f := range m.files {
		sql, err := os.ReadFile(f)
		if err != nil {
			return xe.Wrap(err)
		}
		if strings.TrimSpace(string(sql)) == "" {
			continue
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			return dberr.Classify(xe.WrapWithNote("applying "+f, err))
		}
	}
	if _, err := tx.Exec(ctx, `delete from "schema_version"`); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	if _, err := tx.Exec(
		ctx, `insert into "schema_version" ("version") values ($1)`, m.version,
	); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}

// installed reads the version in the database. 0 when nothing is installed.
func installed(ctx context.Context, q kpool.Queryer) (int, error) {
	var exists bool
	if err := q.QueryRow(
		ctx, `select to_regclass('"schema_version"') is not null`,
	).Scan(&exists); err != nil {
		return -1, dberr.Classify(xe.Wrap(err))
	}
	if !exists {
		return 0, nil
	}

	var version *int32
	if err := q.QueryRow(
		ctx, `select max("version") from "schema_version"`,
	).Scan(&version); err != nil {
		return -1, dberr.Classify(xe.Wrap(err))
	}
	if version == nil {
		return 0, nil
	}
	return int(*version), nil
}

func (s *pgSchema) Version(ctx context.Context) (int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return -1, dberr.Classify(xe.Wrap(err))
	}
	defer conn.Release()
	return installed(ctx, conn)
}

func (s *pgSchema) Latest(ctx context.Context) (int, error) {
	ms, err := s.migrations()
	if err != nil {
		return -1, err
	}
	if len(ms) == 0 {
		return 0, nil
	}
	return ms[len(ms)-1].version, nil
}

func (s *pgSchema) Upgrade(ctx context.Context) error {
	ms, err := s.migrations()
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `select pg_advisory_xact_lock($1)`, upgradeLock); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	current, err := installed(ctx, tx)
	if err != nil {
		return err
	}
	for _, m := range ms {
		if m.version <= current {
			continue
		}
		if err := m.apply(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Classify(xe.Wrap(err))
	}
	return nil
}

// ErrOutdated is the cause of contexts from Context, when the schema in the
// database is not the one the process started with.
var ErrOutdated = errors.New("schema is outdated")

func (s *pgSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancelCause(ctx)

	started, err := s.Version(ctx)
	if err != nil {
		cancel(err)
		return cctx, func() {}
	}

	// the database is compared against the repository and the version at start.
	check := func() {
		latest, err := s.Latest(cctx)
		if err != nil {
			cancel(fmt.Errorf("failed to read schema repository: %w", err))
			return
		}
		current, err := s.Version(cctx)
		if err != nil {
			if cctx.Err() == nil {
				cancel(fmt.Errorf("failed to read schema version: %w", err))
			}
			return
		}
		if current != started || current < latest {
			cancel(fmt.Errorf(
				"%w: %d in database (%d at start), %d in repository",
				ErrOutdated, current, started, latest,
			))
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(xe.Wrap(err))
		return cctx, func() {}
	}
	if err := w.Add(s.repository); err != nil {
		w.Close()
		cancel(xe.Wrap(err))
		return cctx, func() {}
	}

	check()

	go func() {
		defer w.Close()
		tick := time.NewTicker(s.poll)
		defer tick.Stop()

		for {
			select {
			case <-cctx.Done():
				return
			case <-tick.C:
				check()
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					check()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(fmt.Errorf("failed to watch schema repository: %w", err))
				return
			}
		}
	}()

	return cctx, func() { cancel(nil) }
}

// Null is a schema without repository. It never upgrades.
func Null() kschema.SchemaInterface {
	return nullSchema{}
}

type nullSchema struct{}

func (nullSchema) Upgrade(ctx context.Context) error {
	return errors.New("no schema repository available")
}

func (nullSchema) Version(ctx context.Context) (int, error) {
	return -1, nil
}

func (nullSchema) Latest(ctx context.Context) (int, error) {
	return -1, nil
}

func (nullSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	return ctx, func() {}
}
