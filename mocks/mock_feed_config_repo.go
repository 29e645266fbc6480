package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"factorsync/internal/domain"
)

// MockFeedConfigRepo is a mock implementation of port.FeedConfigRepository.
type MockFeedConfigRepo struct {
	mock.Mock
}

func (m *MockFeedConfigRepo) Get(ctx context.Context) (*domain.FeedConfiguration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeedConfiguration), args.Error(1)
}

func (m *MockFeedConfigRepo) Create(ctx context.Context, cfg *domain.FeedConfiguration) (*domain.FeedConfiguration, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeedConfiguration), args.Error(1)
}

func (m *MockFeedConfigRepo) Update(ctx context.Context, cfg *domain.FeedConfiguration) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockFeedConfigRepo) MarkUpdated(ctx context.Context, at time.Time, version string) error {
	args := m.Called(ctx, at, version)
	return args.Error(0)
}
