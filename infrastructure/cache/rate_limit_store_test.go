package cache

import (
	"context"
	"testing"
	"time"

	"news-social/domain/model"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "social:ratelimit:telegram", rateLimitKey(model.PlatformTelegram))
}

func TestDecodeState(t *testing.T) {
	st, err := decodeState([]byte(`{"hourlyCount":3,"dailyCount":9,"lastPostTime":"2026-04-02T09:30:00Z","hourlyWindowStart":"2026-04-02T09:00:00Z","dailyWindowStart":"2026-04-02T00:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, 3, st.HourlyCount)
	assert.Equal(t, 9, st.DailyCount)
	assert.True(t, st.LastPostTime.Equal(time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)))

	_, err = decodeState([]byte("not json"))
	assert.Error(t, err)
}

func TestRateLimitStore_UnreachableRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer rdb.Close()
	store := NewRateLimitStore(rdb)

	st, err := store.Load(context.Background(), model.PlatformFacebook)
	assert.Nil(t, st)
	assert.ErrorContains(t, err, "facebook")
	assert.Error(t, store.Save(context.Background(), model.PlatformFacebook, model.RateLimitState{HourlyCount: 1}))
}
