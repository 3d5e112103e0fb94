package calcache

import (
	"github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
)

type Interface interface {
	Database() db.CacheInterface
}

type impl struct {
	db db.CacheInterface
}

func New(dbcache db.CacheInterface) Interface {
	return &impl{db: dbcache}
}

func (i *impl) Database() db.CacheInterface {
	return i.db
}
