package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/logger"
)

type IRateLimitManager interface {
	// CanPost checks hourly limit, daily limit and minimum delay, in that order.
	CanPost(ctx context.Context, platform model.Platform) model.CanPostResult
	// RecordPost counts a confirmed successful post. No dedup is done here.
	RecordPost(ctx context.Context, platform model.Platform)
	// HandleRateLimitError returns the backoff to wait before retry number attempt (1-based). It does not sleep.
	HandleRateLimitError(platform model.Platform, attempt int) time.Duration
	ResetRateLimits(ctx context.Context, platform model.Platform)
	Config(platform model.Platform) (model.RateLimitConfig, bool)
	Snapshot(ctx context.Context) []model.RateLimitSnapshot
	// Restore loads persisted counters for every configured platform.
	Restore(ctx context.Context)
}

type RateLimitOption func(*rateLimitManager)

// WithRateLimitStore persists counters after every mutation.
func WithRateLimitStore(store repository.IRateLimitStore) RateLimitOption {
	return func(m *rateLimitManager) { m.store = store }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RateLimitOption {
	return func(m *rateLimitManager) { m.now = now }
}

type rateLimitManager struct {
	mu            sync.Mutex
	limits        map[model.Platform]model.RateLimitConfig
	states        map[model.Platform]*model.RateLimitState
	maxRetryDelay time.Duration
	store         repository.IRateLimitStore
	now           func() time.Time
}

func NewRateLimitManager(limits map[model.Platform]model.RateLimitConfig, maxRetryDelay time.Duration, opts ...RateLimitOption) IRateLimitManager {
	if limits == nil {
		limits = model.DefaultRateLimits()
	}
	m := &rateLimitManager{
		limits:        limits,
		states:        make(map[model.Platform]*model.RateLimitState),
		maxRetryDelay: maxRetryDelay,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *rateLimitManager) Config(platform model.Platform) (model.RateLimitConfig, bool) {
	cfg, ok := m.limits[platform]
	return cfg, ok
}

func (m *rateLimitManager) CanPost(ctx context.Context, platform model.Platform) model.CanPostResult {
	cfg, ok := m.limits[platform]
	if !ok {
		return model.CanPostResult{Reason: model.ReasonUnknown, Message: fmt.Sprintf("no rate limit configured for %s", platform)}
	}

	m.mu.Lock()
	now := m.now()
	st, rolled := m.stateLocked(platform, now)
	res := evaluate(cfg, st, now)
	snap := *st
	m.mu.Unlock()

	if rolled {
		m.save(ctx, platform, snap)
	}
	return res
}

func evaluate(cfg model.RateLimitConfig, st *model.RateLimitState, now time.Time) model.CanPostResult {
	if st.HourlyCount >= cfg.PostsPerHour {
		return model.CanPostResult{
			Reason:   model.ReasonHourlyLimit,
			Message:  fmt.Sprintf("hourly limit reached (%d/%d)", st.HourlyCount, cfg.PostsPerHour),
			WaitTime: positive(st.HourlyWindowStart.Add(time.Hour).Sub(now)),
		}
	}
	if st.DailyCount >= cfg.PostsPerDay {
		return model.CanPostResult{
			Reason:   model.ReasonDailyLimit,
			Message:  fmt.Sprintf("daily limit reached (%d/%d)", st.DailyCount, cfg.PostsPerDay),
			WaitTime: positive(st.DailyWindowStart.Add(24 * time.Hour).Sub(now)),
		}
	}
	if !st.LastPostTime.IsZero() {
		if elapsed := now.Sub(st.LastPostTime); elapsed < cfg.MinDelayBetweenPosts {
			wait := cfg.MinDelayBetweenPosts - elapsed
			return model.CanPostResult{
				Reason:   model.ReasonMinDelay,
				Message:  fmt.Sprintf("minimum delay between posts not met, wait %v", wait.Round(time.Second)),
				WaitTime: wait,
			}
		}
	}
	return model.CanPostResult{CanPost: true}
}

func (m *rateLimitManager) RecordPost(ctx context.Context, platform model.Platform) {
	if _, ok := m.limits[platform]; !ok {
		return
	}
	m.mu.Lock()
	now := m.now()
	st, _ := m.stateLocked(platform, now)
	st.HourlyCount++
	st.DailyCount++
	st.LastPostTime = now
	snap := *st
	m.mu.Unlock()

	m.save(ctx, platform, snap)
}

func (m *rateLimitManager) HandleRateLimitError(platform model.Platform, attempt int) time.Duration {
	cfg, ok := m.limits[platform]
	if !ok {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	// exponent clamp keeps the product inside int64 nanoseconds
	exp := math.Min(float64(attempt-1), 20)
	delay := time.Duration(float64(cfg.RetryDelay) * math.Pow(2, exp))
	if m.maxRetryDelay > 0 && delay > m.maxRetryDelay {
		delay = m.maxRetryDelay
	}
	return delay
}

func (m *rateLimitManager) ResetRateLimits(ctx context.Context, platform model.Platform) {
	m.mu.Lock()
	now := m.now()
	st := &model.RateLimitState{HourlyWindowStart: now, DailyWindowStart: now}
	m.states[platform] = st
	snap := *st
	m.mu.Unlock()

	logger.GetLogger().WithField("platform", platform).Info("rate limits reset")
	m.save(ctx, platform, snap)
}

func (m *rateLimitManager) Snapshot(ctx context.Context) []model.RateLimitSnapshot {
	out := make([]model.RateLimitSnapshot, 0, len(m.limits))
	for _, p := range model.AllPlatforms {
		cfg, ok := m.limits[p]
		if !ok {
			continue
		}
		m.mu.Lock()
		now := m.now()
		st, _ := m.stateLocked(p, now)
		gate := evaluate(cfg, st, now)
		snap := model.RateLimitSnapshot{
			Platform:    p,
			HourlyCount: st.HourlyCount,
			HourlyLimit: cfg.PostsPerHour,
			DailyCount:  st.DailyCount,
			DailyLimit:  cfg.PostsPerDay,
			Gate:        gate,
			Config:      cfg,
		}
		if !st.LastPostTime.IsZero() {
			t := st.LastPostTime
			snap.LastPostTime = &t
		}
		m.mu.Unlock()
		out = append(out, snap)
	}
	return out
}

func (m *rateLimitManager) Restore(ctx context.Context) {
	if m.store == nil {
		return
	}
	lg := logger.GetLogger()
	for p := range m.limits {
		st, err := m.store.Load(ctx, p)
		if err != nil {
			lg.WithField("platform", p).WithError(err).Warn("failed to restore rate limit state")
			continue
		}
		if st == nil {
			continue
		}
		m.mu.Lock()
		m.states[p] = st
		m.mu.Unlock()
	}
}

// stateLocked returns the platform state, creating it lazily and rolling windows
// whose duration has elapsed. Caller holds m.mu.
func (m *rateLimitManager) stateLocked(platform model.Platform, now time.Time) (*model.RateLimitState, bool) {
	st, ok := m.states[platform]
	if !ok {
		st = &model.RateLimitState{HourlyWindowStart: now, DailyWindowStart: now}
		m.states[platform] = st
		return st, false
	}
	rolled := false
	if st.HourlyWindowStart.IsZero() || now.Sub(st.HourlyWindowStart) >= time.Hour {
		st.HourlyCount = 0
		st.HourlyWindowStart = now
		rolled = true
	}
	if st.DailyWindowStart.IsZero() || now.Sub(st.DailyWindowStart) >= 24*time.Hour {
		st.DailyCount = 0
		st.DailyWindowStart = now
		rolled = true
	}
	return st, rolled
}

func (m *rateLimitManager) save(ctx context.Context, platform model.Platform, st model.RateLimitState) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, platform, st); err != nil {
		logger.GetLogger().WithField("platform", platform).WithError(err).Warn("failed to persist rate limit state")
	}
}

func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
