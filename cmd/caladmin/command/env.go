package command

import (
	"context"

	"github.com/fitsarchive/calassoc/pkg/association"
	kcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
	kframe "github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
	kschema "github.com/fitsarchive/calassoc/pkg/domain/schema/db"
)

// Env is what commands work on.
type Env struct {
	Frames kframe.FrameInterface
	Cache  kcache.CacheInterface
	Queue  kqueue.QueueInterface
	Schema kschema.SchemaInterface
	Assoc  association.Service
}

// Options are the persistent flags of caladmin.
type Options struct {
	Config     string
	SchemaRepo string
	JSON       bool
}

// Connector prepares Env for a command.
//
// The returned function releases resources of Env.
type Connector func(ctx context.Context, opts Options) (*Env, func(), error)
