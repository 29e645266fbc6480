package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"factorsync/internal/feed"
)

// MockFeedSource is a mock implementation of port.FeedSource.
type MockFeedSource struct {
	mock.Mock
}

func (m *MockFeedSource) Fetch(ctx context.Context, url string) (*feed.Payload, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.Payload), args.Error(1)
}
