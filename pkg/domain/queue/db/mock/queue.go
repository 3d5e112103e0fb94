// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/domain/queue/db"
)

type MockQueueInterface struct {
	Impl struct {
		Enqueue      func(ctx context.Context, frame domain.FrameID, filename string) (bool, error)
		Pop          func(ctx context.Context, worker string) (domain.QueueItem, bool, error)
		Done         func(ctx context.Context, item domain.QueueItem) error
		Retry        func(ctx context.Context, item domain.QueueItem, after time.Duration) error
		Release      func(ctx context.Context, item domain.QueueItem) error
		Fail         func(ctx context.Context, item domain.QueueItem, message string) error
		ExpireLeases func(ctx context.Context, olderThan time.Duration) (int, error)
		Pending      func(ctx context.Context, frame domain.FrameID) (bool, error)
		Status       func(ctx context.Context) (domain.QueueStatus, error)
		RetryFailed  func(ctx context.Context) (int, error)
	}
}

var _ db.QueueInterface = &MockQueueInterface{}

func NewMockQueueInterface() *MockQueueInterface {
	return &MockQueueInterface{}
}

func (m *MockQueueInterface) Enqueue(ctx context.Context, frame domain.FrameID, filename string) (bool, error) {
	if m.Impl.Enqueue == nil {
		return false, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Enqueue(ctx, frame, filename)
}

func (m *MockQueueInterface) Pop(ctx context.Context, worker string) (domain.QueueItem, bool, error) {
	if m.Impl.Pop == nil {
		return domain.QueueItem{}, false, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Pop(ctx, worker)
}

func (m *MockQueueInterface) Done(ctx context.Context, item domain.QueueItem) error {
	if m.Impl.Done == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Done(ctx, item)
}

func (m *MockQueueInterface) Retry(ctx context.Context, item domain.QueueItem, after time.Duration) error {
	if m.Impl.Retry == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Retry(ctx, item, after)
}

func (m *MockQueueInterface) Release(ctx context.Context, item domain.QueueItem) error {
	if m.Impl.Release == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Release(ctx, item)
}

func (m *MockQueueInterface) Fail(ctx context.Context, item domain.QueueItem, message string) error {
	if m.Impl.Fail == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Fail(ctx, item, message)
}

func (m *MockQueueInterface) ExpireLeases(ctx context.Context, olderThan time.Duration) (int, error) {
	if m.Impl.ExpireLeases == nil {
		return 0, errors.New("[MOCK] not implemented")
	}
	return m.Impl.ExpireLeases(ctx, olderThan)
}

func (m *MockQueueInterface) Pending(ctx context.Context, frame domain.FrameID) (bool, error) {
	if m.Impl.Pending == nil {
		return false, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Pending(ctx, frame)
}

func (m *MockQueueInterface) Status(ctx context.Context) (domain.QueueStatus, error) {
	if m.Impl.Status == nil {
		return domain.QueueStatus{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Status(ctx)
}

func (m *MockQueueInterface) RetryFailed(ctx context.Context) (int, error) {
	if m.Impl.RetryFailed == nil {
		return 0, errors.New("[MOCK] not implemented")
	}
	return m.Impl.RetryFailed(ctx)
}
