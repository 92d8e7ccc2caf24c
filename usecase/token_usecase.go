package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/logger"
)

// TokenActor stamps settings writes made by the lifecycle manager.
const TokenActor = "token-lifecycle"

// TokenCheckReport is the outcome of one platform in a scheduled check cycle.
type TokenCheckReport struct {
	Platform     model.Platform     `json:"platform"`
	Status       *model.TokenStatus `json:"status,omitempty"`
	Refreshed    bool               `json:"refreshed"`
	RefreshError string             `json:"refreshError,omitempty"`
}

type ITokenLifecycleManager interface {
	CheckTokenStatus(ctx context.Context, platform model.Platform) (*model.TokenStatus, error)
	GetTokenInfo(ctx context.Context, platform model.Platform) (*model.TokenInfo, error)
	RefreshToken(ctx context.Context, platform model.Platform) (*model.RefreshResult, error)
	// RunScheduledCheck checks every ready platform and refreshes at most once per platform.
	RunScheduledCheck(ctx context.Context) []TokenCheckReport
	// States returns the last known status per platform.
	States() map[model.Platform]model.TokenStatus
	// Start runs RunScheduledCheck now and then on every interval until ctx is done.
	Start(ctx context.Context) error
}

type TokenConfig struct {
	Interval       time.Duration
	ThresholdDays  int
	RequestTimeout time.Duration
}

type tokenLifecycleManager struct {
	creds      ICredentialUsecase
	strategies map[model.Platform]repository.ITokenStrategy
	cfg        TokenConfig
	metrics    IPostMetrics
	now        func() time.Time

	mu     sync.RWMutex
	states map[model.Platform]model.TokenStatus
}

func NewTokenLifecycleManager(creds ICredentialUsecase, strategies []repository.ITokenStrategy, cfg TokenConfig, metrics IPostMetrics) ITokenLifecycleManager {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.ThresholdDays <= 0 {
		cfg.ThresholdDays = 10
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	m := &tokenLifecycleManager{
		creds:      creds,
		strategies: make(map[model.Platform]repository.ITokenStrategy, len(strategies)),
		cfg:        cfg,
		metrics:    metrics,
		now:        time.Now,
		states:     make(map[model.Platform]model.TokenStatus),
	}
	for _, s := range strategies {
		m.strategies[s.Platform()] = s
	}
	return m
}

func (m *tokenLifecycleManager) strategy(p model.Platform) (repository.ITokenStrategy, error) {
	s, ok := m.strategies[p]
	if !ok {
		return nil, fmt.Errorf("no token strategy for platform %q", p)
	}
	return s, nil
}

func (m *tokenLifecycleManager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.RequestTimeout)
}

func (m *tokenLifecycleManager) CheckTokenStatus(ctx context.Context, p model.Platform) (*model.TokenStatus, error) {
	strat, err := m.strategy(p)
	if err != nil {
		return nil, err
	}
	settings, err := m.creds.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if !model.Ready(settings.Credentials(p)) {
		st := &model.TokenStatus{Platform: p, Message: "platform not enabled or not configured", CheckedAt: now, State: model.TokenStateUnknown}
		m.setState(*st)
		return st, nil
	}

	cctx, cancel := m.withTimeout(ctx)
	status, err := strat.CheckToken(cctx, settings)
	cancel()
	if err != nil {
		st := &model.TokenStatus{Platform: p, Message: err.Error(), CheckedAt: now, State: model.TokenStateUnknown}
		if model.KindOf(err) == model.ErrorKindAuth {
			st.State = model.TokenStateInvalid
		}
		m.setState(*st)
		logger.GetLogger().WithFields(map[string]interface{}{"platform": p, "state": st.State, "error": err.Error()}).Warn("token check failed")
		return st, nil
	}

	status.Platform = p
	status.CheckedAt = now
	if status.Valid && status.ExpiresAt == nil {
		info, iErr := m.GetTokenInfo(ctx, p)
		switch {
		case errors.Is(iErr, model.ErrIntrospectionUnsupported):
		case iErr != nil:
			logger.GetLogger().WithField("platform", p).WithError(iErr).Warn("token introspection failed")
		case info != nil:
			status.ExpiresAt = info.ExpiresAt
			if !info.Valid {
				status.Valid = false
				status.Message = "token reported invalid by introspection"
			}
		}
	}
	if status.ExpiresAt != nil {
		d := model.DaysUntil(*status.ExpiresAt, now)
		status.DaysLeft = &d
	}
	status.State = model.StateFor(status, m.cfg.ThresholdDays)
	m.setState(*status)
	return status, nil
}

func (m *tokenLifecycleManager) GetTokenInfo(ctx context.Context, p model.Platform) (*model.TokenInfo, error) {
	strat, err := m.strategy(p)
	if err != nil {
		return nil, err
	}
	settings, err := m.creds.Load(ctx)
	if err != nil {
		return nil, err
	}
	cctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return strat.TokenInfo(cctx, settings)
}

func (m *tokenLifecycleManager) RefreshToken(ctx context.Context, p model.Platform) (*model.RefreshResult, error) {
	lg := logger.GetLogger().WithField("platform", p)
	strat, err := m.strategy(p)
	if err != nil {
		return nil, err
	}
	settings, err := m.creds.Load(ctx)
	if err != nil {
		return nil, err
	}

	prev := m.markRefreshing(p)
	cctx, cancel := m.withTimeout(ctx)
	res, err := strat.RefreshToken(cctx, settings)
	cancel()
	switch {
	case err != nil:
	case res == nil:
		err = errors.New("refresh returned no result")
	case !res.Success:
		msg := res.Error
		if msg == "" {
			msg = "refresh rejected by provider"
		}
		err = errors.New(msg)
	}
	if err == nil && len(res.Patch) > 0 {
		if uErr := m.creds.Update(ctx, res.Patch, TokenActor); uErr != nil {
			err = fmt.Errorf("persist refreshed token: %w", uErr)
		}
	}
	if err != nil {
		m.setState(prev)
		if errors.Is(err, model.ErrRefreshUnsupported) {
			m.metrics.TokenRefresh(p, "unsupported")
			lg.Debug("token refresh not supported")
		} else {
			m.metrics.TokenRefresh(p, "failure")
			lg.WithError(err).Error("token refresh failed, keeping stored token")
		}
		return &model.RefreshResult{Success: false, Error: err.Error()}, err
	}

	m.creds.Invalidate()
	next := model.TokenStatus{Platform: p, Valid: true, CheckedAt: m.now(), State: model.TokenStateValid, Message: "token refreshed"}
	if res.ExpiresIn > 0 {
		exp := m.now().Add(res.ExpiresIn)
		d := model.DaysUntil(exp, m.now())
		next.ExpiresAt = &exp
		next.DaysLeft = &d
		next.State = model.StateFor(&next, m.cfg.ThresholdDays)
	}
	m.setState(next)
	m.metrics.TokenRefresh(p, "success")
	lg.WithField("expiresIn", res.ExpiresIn.String()).Info("token refreshed")
	return res, nil
}

func (m *tokenLifecycleManager) RunScheduledCheck(ctx context.Context) []TokenCheckReport {
	lg := logger.GetLogger()
	settings, err := m.creds.Load(ctx)
	if err != nil {
		lg.WithError(err).Error("token check skipped, settings unavailable")
		return nil
	}
	reports := []TokenCheckReport{}
	for _, p := range model.AllPlatforms {
		if _, ok := m.strategies[p]; !ok || !model.Ready(settings.Credentials(p)) {
			continue
		}
		report := TokenCheckReport{Platform: p}
		status, err := m.CheckTokenStatus(ctx, p)
		if err != nil {
			report.RefreshError = err.Error()
			reports = append(reports, report)
			continue
		}
		report.Status = status
		if status.NeedsRefresh(m.cfg.ThresholdDays) {
			if _, rErr := m.RefreshToken(ctx, p); rErr != nil {
				report.RefreshError = rErr.Error()
			} else {
				report.Refreshed = true
			}
		}
		reports = append(reports, report)
	}
	lg.WithField("platforms", len(reports)).Info("token check cycle finished")
	return reports
}

func (m *tokenLifecycleManager) Start(ctx context.Context) error {
	lg := logger.GetLogger()
	lg.WithField("interval", m.cfg.Interval.String()).Info("starting token lifecycle scheduler")
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.RunScheduledCheck(ctx)
	for {
		select {
		case <-ticker.C:
			m.RunScheduledCheck(ctx)
		case <-ctx.Done():
			lg.Info("token lifecycle scheduler stopped")
			return nil
		}
	}
}

func (m *tokenLifecycleManager) States() map[model.Platform]model.TokenStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.Platform]model.TokenStatus, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}
	return out
}

func (m *tokenLifecycleManager) setState(s model.TokenStatus) {
	m.mu.Lock()
	m.states[s.Platform] = s
	m.mu.Unlock()
}

// markRefreshing moves the platform to Refreshing and returns the prior status.
func (m *tokenLifecycleManager) markRefreshing(p model.Platform) model.TokenStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.states[p]
	if !ok {
		prev = model.TokenStatus{Platform: p, State: model.TokenStateUnknown}
	}
	cur := prev
	cur.State = model.TokenStateRefreshing
	m.states[p] = cur
	return prev
}
