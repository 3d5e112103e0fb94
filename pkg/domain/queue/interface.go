package queue

import (
	"github.com/fitsarchive/calassoc/pkg/domain/queue/db"
)

type Interface interface {
	Database() db.QueueInterface
}

type impl struct {
	db db.QueueInterface
}

func New(dbqueue db.QueueInterface) Interface {
	return &impl{db: dbqueue}
}

func (i *impl) Database() db.QueueInterface {
	return i.db
}
