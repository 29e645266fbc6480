package port

import (
	"context"

	"factorsync/internal/domain"
)

// FactorStore defines the contract for emission factor persistence.
// (Subcategory, Category) identifies a factor across runs.
type FactorStore interface {
	// FindByKey returns domain.ErrNotFound when no factor has that key.
	FindByKey(ctx context.Context, subcategory, category string) (*domain.EmissionFactor, error)
	Upsert(ctx context.Context, factor *domain.EmissionFactor) (domain.UpsertOutcome, error)
	ListByCategory(ctx context.Context, category string) ([]domain.EmissionFactor, error)
}
