package mocks

import (
	"context"
	"errors"

	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/domain"
)

type MockService struct {
	Impl struct {
		Resolve            func(ctx context.Context, selection string) (domain.Frame, error)
		Associate          func(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) ([]association.Association, error)
		CacheAssociations  func(ctx context.Context, target domain.FrameID) error
		ApplicableCaltypes func(ctx context.Context, target domain.FrameID) ([]domain.Caltype, error)
		Closure            func(ctx context.Context, targets []domain.FrameID, caltype *domain.Caltype, depth int) ([]domain.Frame, error)
	}
}

var _ association.Service = &MockService{}

func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) Resolve(ctx context.Context, selection string) (domain.Frame, error) {
	if m.Impl.Resolve == nil {
		return domain.Frame{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Resolve(ctx, selection)
}

func (m *MockService) Associate(ctx context.Context, target domain.FrameID, caltype *domain.Caltype) ([]association.Association, error) {
	if m.Impl.Associate == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Associate(ctx, target, caltype)
}

func (m *MockService) CacheAssociations(ctx context.Context, target domain.FrameID) error {
	if m.Impl.CacheAssociations == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.CacheAssociations(ctx, target)
}

func (m *MockService) ApplicableCaltypes(ctx context.Context, target domain.FrameID) ([]domain.Caltype, error) {
	if m.Impl.ApplicableCaltypes == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.ApplicableCaltypes(ctx, target)
}

func (m *MockService) Closure(ctx context.Context, targets []domain.FrameID, caltype *domain.Caltype, depth int) ([]domain.Frame, error) {
	if m.Impl.Closure == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Closure(ctx, targets, caltype, depth)
}
