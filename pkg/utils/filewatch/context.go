// Package filewatch ends contexts when files are changed.
package filewatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// ErrModified is the cause of contexts ended by changes of watched files.
var ErrModified = errors.New("watched file is modified")

// UntilModifyContext returns a context canceled when any of paths is
// written, created, removed or renamed. For directories, files in them are
// watched.
//
// Changes only of modes do not cancel.
//
// # Returns
//
// - context.Context: context canceled with ErrModified as its cause.
//
// - func(): stops watching and cancels the context.
//
// - error: when watching can not be started. Then the others are nil.
func UntilModifyContext(ctx context.Context, paths ...string) (context.Context, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, nil, fmt.Errorf("can not watch %s: %w", p, err)
		}
	}

	cctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(fmt.Errorf("%w: watching is broken: %w", ErrModified, err))
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
					continue
				}
				cancel(fmt.Errorf("%w: %s (%s)", ErrModified, event.Name, event.Op))
				return
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
