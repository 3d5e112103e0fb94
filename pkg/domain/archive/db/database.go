package db

import (
	kcache "github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
	kframe "github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	kqueue "github.com/fitsarchive/calassoc/pkg/domain/queue/db"
	kschema "github.com/fitsarchive/calassoc/pkg/domain/schema/db"
)

type ArchiveDatabase interface {
	Frame() kframe.FrameInterface
	Cache() kcache.CacheInterface
	Queue() kqueue.QueueInterface
	Schema() kschema.SchemaInterface
	Close() error
}
