package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"news-social/domain/model"
	"news-social/domain/repository"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "social:ratelimit:"

type rateLimitStore struct {
	rdb redis.Cmdable
}

// NewRateLimitStore keeps one JSON document per platform without expiry;
// window rollover is decided by the manager, not by key TTLs.
func NewRateLimitStore(rdb redis.Cmdable) repository.IRateLimitStore {
	return &rateLimitStore{rdb: rdb}
}

func rateLimitKey(p model.Platform) string {
	return rateLimitKeyPrefix + string(p)
}

func (s *rateLimitStore) Load(ctx context.Context, platform model.Platform) (*model.RateLimitState, error) {
	raw, err := s.rdb.Get(ctx, rateLimitKey(platform)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load rate limit state for %s: %w", platform, err)
	}
	return decodeState(raw)
}

func (s *rateLimitStore) Save(ctx context.Context, platform model.Platform, state model.RateLimitState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, rateLimitKey(platform), raw, 0).Err(); err != nil {
		return fmt.Errorf("save rate limit state for %s: %w", platform, err)
	}
	return nil
}

func decodeState(raw []byte) (*model.RateLimitState, error) {
	var st model.RateLimitState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode rate limit state: %w", err)
	}
	return &st, nil
}
