package port

import (
	"context"
	"time"

	"factorsync/internal/domain"
)

// FeedConfigRepository persists the single feed configuration row.
type FeedConfigRepository interface {
	// Get returns domain.ErrNotFound until the row has been created.
	Get(ctx context.Context) (*domain.FeedConfiguration, error)
	// Create inserts cfg unless the row already exists, then returns the stored row.
	Create(ctx context.Context, cfg *domain.FeedConfiguration) (*domain.FeedConfiguration, error)
	Update(ctx context.Context, cfg *domain.FeedConfiguration) error
	MarkUpdated(ctx context.Context, at time.Time, version string) error
}
