package filewatch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fitsarchive/calassoc/pkg/utils/filewatch"
)

func TestUntilModifyContext(t *testing.T) {
	type when struct {
		// watch the directory (true) or the file (false)
		watchDir bool
		modify   func(t *testing.T, dir, file string)
	}

	write := func(t *testing.T, _, file string) {
		if err := os.WriteFile(file, []byte("worker: {concurrency: 8}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	remove := func(t *testing.T, _, file string) {
		if err := os.Remove(file); err != nil {
			t.Fatal(err)
		}
	}
	rename := func(t *testing.T, dir, file string) {
		if err := os.Rename(file, filepath.Join(dir, "renamed.yaml")); err != nil {
			t.Fatal(err)
		}
	}
	chmod := func(t *testing.T, _, file string) {
		if err := os.Chmod(file, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	for name, testcase := range map[string]struct {
		when       when
		thenCancel bool
	}{
		"file in the directory is created": {
			when: when{watchDir: true, modify: func(t *testing.T, dir, _ string) {
				write(t, dir, filepath.Join(dir, "new.yaml"))
			}},
			thenCancel: true,
		},
		"file in the directory is written": {when: when{watchDir: true, modify: write}, thenCancel: true},
		"file in the directory is removed": {when: when{watchDir: true, modify: remove}, thenCancel: true},
		"file in the directory is renamed": {when: when{watchDir: true, modify: rename}, thenCancel: true},
		"watched file is written":          {when: when{modify: write}, thenCancel: true},
		"watched file is removed":          {when: when{modify: remove}, thenCancel: true},
		"watched file is renamed":          {when: when{modify: rename}, thenCancel: true},
		"mode of the watched file changes": {when: when{modify: chmod}, thenCancel: false},
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			file := filepath.Join(dir, "calassoc.yaml")
			if err := os.WriteFile(file, []byte("worker: {concurrency: 4}\n"), 0o644); err != nil {
				t.Fatal(err)
			}

			target := file
			if testcase.when.watchDir {
				target = dir
			}
			ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), target)
			if err != nil {
				t.Fatal(err)
			}
			defer cancel()
			if err := ctx.Err(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testcase.when.modify(t, dir, file)

			wait := 3 * time.Second
			if !testcase.thenCancel {
				wait = 300 * time.Millisecond
			}
			select {
			case <-ctx.Done():
				if !testcase.thenCancel {
					t.Fatalf("context is canceled: %v", context.Cause(ctx))
				}
				if cause := context.Cause(ctx); !errors.Is(cause, filewatch.ErrModified) {
					t.Errorf("unexpected cause: %v", cause)
				}
			case <-time.After(wait):
				if testcase.thenCancel {
					t.Fatal("context is not canceled")
				}
			}
		})
	}
}

func TestUntilModifyContext_Missing(t *testing.T) {
	_, _, err := filewatch.UntilModifyContext(
		context.Background(), filepath.Join(t.TempDir(), "missing.yaml"),
	)
	if err == nil {
		t.Error("expected error does not happen")
	}
}

func TestUntilModifyContext_Cancel(t *testing.T) {
	ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	<-ctx.Done()
	if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
		t.Errorf("unexpected cause: %v", cause)
	}
}
