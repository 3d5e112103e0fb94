// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	"github.com/fitsarchive/calassoc/pkg/query"
)

type MockFrameInterface struct {
	Impl struct {
		Select   func(context.Context, query.Query) ([]domain.Frame, error)
		Get      func(context.Context, domain.FrameID) (domain.Frame, error)
		GetMany  func(context.Context, []domain.FrameID) ([]domain.Frame, error)
		Find     func(context.Context, string) ([]domain.Frame, error)
		Eligible func(context.Context, db.EligibleFilter) ([]db.FrameRef, error)
	}
}

var _ db.FrameInterface = &MockFrameInterface{}

func NewMockFrameInterface() *MockFrameInterface {
	return &MockFrameInterface{}
}

func (m *MockFrameInterface) Select(ctx context.Context, q query.Query) ([]domain.Frame, error) {
	if m.Impl.Select == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Select(ctx, q)
}

func (m *MockFrameInterface) Get(ctx context.Context, id domain.FrameID) (domain.Frame, error) {
	if m.Impl.Get == nil {
		return domain.Frame{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Get(ctx, id)
}

func (m *MockFrameInterface) GetMany(ctx context.Context, ids []domain.FrameID) ([]domain.Frame, error) {
	if m.Impl.GetMany == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetMany(ctx, ids)
}

func (m *MockFrameInterface) Find(ctx context.Context, selection string) ([]domain.Frame, error) {
	if m.Impl.Find == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Find(ctx, selection)
}

func (m *MockFrameInterface) Eligible(ctx context.Context, filter db.EligibleFilter) ([]db.FrameRef, error) {
	if m.Impl.Eligible == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Eligible(ctx, filter)
}
