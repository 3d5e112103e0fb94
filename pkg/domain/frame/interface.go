package frame

import (
	"github.com/fitsarchive/calassoc/pkg/domain/frame/db"
)

type Interface interface {
	Database() db.FrameInterface
}

type impl struct {
	db db.FrameInterface
}

func New(dbf db.FrameInterface) Interface {
	return &impl{db: dbf}
}

func (i *impl) Database() db.FrameInterface {
	return i.db
}
