package repository

import (
	"context"

	"news-social/domain/model"
)

// IRateLimitStore persists rate-limit counters across restarts.
// Load returns (nil, nil) when nothing is stored for the platform.
type IRateLimitStore interface {
	Load(ctx context.Context, platform model.Platform) (*model.RateLimitState, error)
	Save(ctx context.Context, platform model.Platform, state model.RateLimitState) error
}
