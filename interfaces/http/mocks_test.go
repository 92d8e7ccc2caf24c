package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"news-social/domain/model"
	"news-social/infrastructure/clients/facebook"
	"news-social/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type MockCredentials struct{ mock.Mock }

func (m *MockCredentials) Load(ctx context.Context) (*model.SocialMediaSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SocialMediaSettings), args.Error(1)
}

func (m *MockCredentials) Update(ctx context.Context, patch map[string]any, actorID string) error {
	return m.Called(ctx, patch, actorID).Error(0)
}

func (m *MockCredentials) Masked(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockCredentials) Readiness(ctx context.Context) ([]model.PlatformReadiness, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PlatformReadiness), args.Error(1)
}

func (m *MockCredentials) Invalidate() { m.Called() }

type MockAutoPost struct{ mock.Mock }

func (m *MockAutoPost) AutoPostContent(ctx context.Context, article model.Article) *model.MultiPlatformPostResult {
	return m.Called(ctx, article).Get(0).(*model.MultiPlatformPostResult)
}

func (m *MockAutoPost) DeletePost(ctx context.Context, p model.Platform, postID string) error {
	return m.Called(ctx, p, postID).Error(0)
}

func (m *MockAutoPost) History(ctx context.Context, slug string, limit int) ([]*model.PostAudit, error) {
	args := m.Called(ctx, slug, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PostAudit), args.Error(1)
}

type MockRateLimits struct{ mock.Mock }

func (m *MockRateLimits) CanPost(ctx context.Context, p model.Platform) model.CanPostResult {
	return m.Called(ctx, p).Get(0).(model.CanPostResult)
}

func (m *MockRateLimits) RecordPost(ctx context.Context, p model.Platform) { m.Called(ctx, p) }

func (m *MockRateLimits) HandleRateLimitError(p model.Platform, attempt int) time.Duration {
	return m.Called(p, attempt).Get(0).(time.Duration)
}

func (m *MockRateLimits) ResetRateLimits(ctx context.Context, p model.Platform) { m.Called(ctx, p) }

func (m *MockRateLimits) Config(p model.Platform) (model.RateLimitConfig, bool) {
	args := m.Called(p)
	return args.Get(0).(model.RateLimitConfig), args.Bool(1)
}

func (m *MockRateLimits) Snapshot(ctx context.Context) []model.RateLimitSnapshot {
	return m.Called(ctx).Get(0).([]model.RateLimitSnapshot)
}

func (m *MockRateLimits) Restore(ctx context.Context) { m.Called(ctx) }

type MockTokens struct{ mock.Mock }

func (m *MockTokens) CheckTokenStatus(ctx context.Context, p model.Platform) (*model.TokenStatus, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenStatus), args.Error(1)
}

func (m *MockTokens) GetTokenInfo(ctx context.Context, p model.Platform) (*model.TokenInfo, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenInfo), args.Error(1)
}

func (m *MockTokens) RefreshToken(ctx context.Context, p model.Platform) (*model.RefreshResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshResult), args.Error(1)
}

func (m *MockTokens) RunScheduledCheck(ctx context.Context) []usecase.TokenCheckReport {
	return m.Called(ctx).Get(0).([]usecase.TokenCheckReport)
}

func (m *MockTokens) States() map[model.Platform]model.TokenStatus {
	return m.Called().Get(0).(map[model.Platform]model.TokenStatus)
}

func (m *MockTokens) Start(ctx context.Context) error { return m.Called(ctx).Error(0) }

type MockConnector struct{ mock.Mock }

func (m *MockConnector) AuthURL(fb model.FacebookCredentials, redirectURI, state string) (string, error) {
	args := m.Called(fb, redirectURI, state)
	return args.String(0), args.Error(1)
}

func (m *MockConnector) Connect(ctx context.Context, fb model.FacebookCredentials, redirectURI, code string) (*facebook.ConnectResult, error) {
	args := m.Called(ctx, fb, redirectURI, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*facebook.ConnectResult), args.Error(1)
}

// serve runs one request through a throwaway router.
func serve(t *testing.T, register func(r *gin.Engine), method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	register(r)

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

