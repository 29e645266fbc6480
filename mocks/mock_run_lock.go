package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunLock is a mock implementation of port.RunLock.
type MockRunLock struct {
	mock.Mock
}

func (m *MockRunLock) TryAcquire(ctx context.Context) (func(), error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
