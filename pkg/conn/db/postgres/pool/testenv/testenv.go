// Package testenv provides a postgres pool for tests of stores.
//
// Tests using it are skipped unless CALASSOC_TEST_DATABASE is set to a
// connection url of a database which may be wiped. The schema is taken from
// CALASSOC_TEST_SCHEMA, or "schema/postgres" of this repository.
package testenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	kpool "github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool"
	"github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool/proxy"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/field"
	schema "github.com/fitsarchive/calassoc/pkg/domain/schema/db/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	EnvDatabase = "CALASSOC_TEST_DATABASE"
	EnvSchema   = "CALASSOC_TEST_SCHEMA"
)

// SchemaRepository is the schema repository tests apply.
func SchemaRepository() string {
	if s := os.Getenv(EnvSchema); s != "" {
		return s
	}
	_, here, _, _ := runtime.Caller(0)
	// pkg/conn/db/postgres/pool/testenv -> repository root
	return filepath.Join(filepath.Dir(here), "..", "..", "..", "..", "..", "..", "schema", "postgres")
}

// GetPool returns a pool to the test database, with the latest schema and
// empty tables.
//
// The returned pool reports connections and transactions left open when t
// finishes.
func GetPool(ctx context.Context, t *testing.T) *proxy.Pool {
	t.Helper()

	url := os.Getenv(EnvDatabase)
	if url == "" {
		t.Skipf("%s is not set", EnvDatabase)
	}

	p, err := pgxpool.Connect(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Close)

	base := kpool.Wrap(p)
	if err := schema.New(base, SchemaRepository()).Upgrade(ctx); err != nil {
		t.Fatal(err)
	}
	ClearTables(ctx, t, base)

	pool := proxy.Wrap(base)
	t.Cleanup(func() {
		if held := pool.Held(); held != 0 {
			t.Errorf("%d connection(s) are not released", held)
		}
		if open := pool.Open(); open != 0 {
			t.Errorf("%d transaction(s) are left open", open)
		}
		ClearTables(context.Background(), t, base)
	})
	return pool
}

func ClearTables(ctx context.Context, t *testing.T, pool kpool.Pool) {
	t.Helper()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("fail to clean-up tables: %v", err)
	}
	defer conn.Release()

	// by cascade, rows referring frames are deleted too.
	if _, err := conn.Exec(
		ctx, `truncate "frame", "refresh_queue" restart identity cascade`,
	); err != nil {
		t.Errorf("fail to clean-up tables: %v", err)
	}
}

// InsertFrames writes frames as ingest does. Ids of frames are kept.
func InsertFrames(ctx context.Context, t *testing.T, pool kpool.Pool, frames ...domain.Frame) {
	t.Helper()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Release()

	insert := func(table string, cols []string, args []any) {
		t.Helper()
		ph := make([]string, len(args))
		for i := range args {
			ph[i] = fmt.Sprintf("$%d", i+1)
		}
		sql := fmt.Sprintf(
			`insert into "%s" ("%s") values (%s)`,
			table, strings.Join(cols, `", "`), strings.Join(ph, ", "),
		)
		if _, err := conn.Exec(ctx, sql, args...); err != nil {
			t.Fatalf("fail to insert %s: %v", table, err)
		}
	}

	for _, f := range frames {
		types := f.Types
		if types == nil {
			types = []string{}
		}
		cols := []string{"id", "filename", "canonical", "types"}
		args := []any{int64(f.ID), f.Filename, f.Canonical, types}
		for fld, v := range f.Header {
			if fld.Table() != field.Header {
				continue
			}
			cols = append(cols, fld.Column())
			args = append(args, v.Interface())
		}
		insert(field.Header.String(), cols, args)

		for _, d := range f.Details {
			cols := []string{"frame_id"}
			args := []any{int64(f.ID)}
			for fld, v := range d {
				if fld.Table() != field.Detail && !fld.OverridableByArm() {
					continue
				}
				cols = append(cols, fld.Column())
				args = append(args, v.Interface())
			}
			insert(field.Detail.String(), cols, args)
		}
	}

	// ids are given explicitly. let the sequence go past them.
	if _, err := conn.Exec(
		ctx, `select setval(pg_get_serial_sequence('frame', 'id'), coalesce(max("id"), 0) + 1, false) from "frame"`,
	); err != nil {
		t.Fatal(err)
	}
}
