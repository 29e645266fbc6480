package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"factorsync/internal/domain"
)

// MockFactorStore is a mock implementation of port.FactorStore.
type MockFactorStore struct {
	mock.Mock
}

func (m *MockFactorStore) FindByKey(ctx context.Context, subcategory, category string) (*domain.EmissionFactor, error) {
	args := m.Called(ctx, subcategory, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmissionFactor), args.Error(1)
}

func (m *MockFactorStore) Upsert(ctx context.Context, factor *domain.EmissionFactor) (domain.UpsertOutcome, error) {
	args := m.Called(ctx, factor)
	return args.Get(0).(domain.UpsertOutcome), args.Error(1)
}

func (m *MockFactorStore) ListByCategory(ctx context.Context, category string) ([]domain.EmissionFactor, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmissionFactor), args.Error(1)
}
