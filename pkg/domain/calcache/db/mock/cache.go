// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/calcache/db"
)

type MockCacheInterface struct {
	Impl struct {
		Replace    func(ctx context.Context, target domain.FrameID, entries []domain.CacheEntry) error
		Lookup     func(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (domain.Cached, error)
		Invalidate func(ctx context.Context, targets ...domain.FrameID) error
		Drop       func(ctx context.Context) error
	}
}

var _ db.CacheInterface = &MockCacheInterface{}

func NewMockCacheInterface() *MockCacheInterface {
	return &MockCacheInterface{}
}

func (m *MockCacheInterface) Replace(ctx context.Context, target domain.FrameID, entries []domain.CacheEntry) error {
	if m.Impl.Replace == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Replace(ctx, target, entries)
}

func (m *MockCacheInterface) Lookup(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) (domain.Cached, error) {
	if m.Impl.Lookup == nil {
		return domain.Cached{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Lookup(ctx, target, caltype)
}

func (m *MockCacheInterface) Invalidate(ctx context.Context, targets ...domain.FrameID) error {
	if m.Impl.Invalidate == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Invalidate(ctx, targets...)
}

func (m *MockCacheInterface) Drop(ctx context.Context) error {
	if m.Impl.Drop == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Drop(ctx)
}
