package port

import (
	"context"

	"factorsync/internal/feed"
)

// FeedSource downloads the raw reference feed.
type FeedSource interface {
	Fetch(ctx context.Context, url string) (*feed.Payload, error)
}
