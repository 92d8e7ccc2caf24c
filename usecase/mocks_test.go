package usecase_test

import (
	"context"
	"sync"
	"time"

	"news-social/domain/model"

	"github.com/stretchr/testify/mock"
)

// memSettings is an in-memory credential store.
type memSettings struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	actors  []string
	getErr  error
	updates int
}

func newMemSettings(fields map[string]any) *memSettings {
	return &memSettings{docs: map[string]map[string]any{model.SettingsCategory: fields}}
}

func (s *memSettings) GetCategorySettings(_ context.Context, category string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := map[string]any{}
	for k, v := range s.docs[category] {
		out[k] = v
	}
	return out, nil
}

func (s *memSettings) UpdateCategorySettings(_ context.Context, category string, patch map[string]any, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[category] == nil {
		s.docs[category] = map[string]any{}
	}
	for k, v := range patch {
		s.docs[category][k] = v
	}
	s.actors = append(s.actors, actorID)
	s.updates++
	return nil
}

func (s *memSettings) field(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[model.SettingsCategory][name]
}

func allReadyFields() map[string]any {
	return map[string]any{
		"facebookEnabled":            true,
		"facebookAppId":              "1234567890",
		"facebookAppSecret":          "fb-app-secret",
		"facebookPageId":             "998877",
		"facebookPageAccessToken":    "fb-page-token",
		"twitterEnabled":             true,
		"twitterApiKey":              "tw-key",
		"twitterApiSecret":           "tw-secret",
		"twitterAccessToken":         "tw-token",
		"twitterAccessTokenSecret":   "tw-token-secret",
		"linkedinEnabled":            true,
		"linkedinClientId":           "li-client",
		"linkedinClientSecret":       "li-secret",
		"linkedinAccessToken":        "li-token",
		"linkedinRefreshToken":       "li-refresh",
		"linkedinOrganizationId":     "5566",
		"instagramEnabled":           true,
		"instagramAppId":             "1234567890",
		"instagramBusinessAccountId": "17841400000",
		"instagramAccessToken":       "ig-token",
		"telegramEnabled":            true,
		"telegramBotToken":           "123:ABC",
		"telegramChannelId":          "-1001234567890",
		"telegramChannelUsername":    "@newschannel",
	}
}

type MockPlatformClient struct {
	mock.Mock
	platform model.Platform
}

func newMockClient(p model.Platform) *MockPlatformClient {
	return &MockPlatformClient{platform: p}
}

func (m *MockPlatformClient) Platform() model.Platform { return m.platform }

func (m *MockPlatformClient) Post(ctx context.Context, req *model.PostRequest, settings *model.SocialMediaSettings) (*model.PostAttemptResult, error) {
	args := m.Called(ctx, req, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PostAttemptResult), args.Error(1)
}

type MockDeletingClient struct {
	MockPlatformClient
}

func (m *MockDeletingClient) DeletePost(ctx context.Context, postID string, settings *model.SocialMediaSettings) error {
	args := m.Called(ctx, postID, settings)
	return args.Error(0)
}

type MockTokenStrategy struct {
	mock.Mock
	platform model.Platform
}

func (m *MockTokenStrategy) Platform() model.Platform { return m.platform }

func (m *MockTokenStrategy) CheckToken(ctx context.Context, settings *model.SocialMediaSettings) (*model.TokenStatus, error) {
	args := m.Called(ctx, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenStatus), args.Error(1)
}

func (m *MockTokenStrategy) TokenInfo(ctx context.Context, settings *model.SocialMediaSettings) (*model.TokenInfo, error) {
	args := m.Called(ctx, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenInfo), args.Error(1)
}

func (m *MockTokenStrategy) RefreshToken(ctx context.Context, settings *model.SocialMediaSettings) (*model.RefreshResult, error) {
	args := m.Called(ctx, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshResult), args.Error(1)
}

type MockPostAudit struct {
	mock.Mock
}

func (m *MockPostAudit) CreateAudit(ctx context.Context, audits []*model.PostAudit) error {
	args := m.Called(ctx, audits)
	return args.Error(0)
}

func (m *MockPostAudit) ListBySlug(ctx context.Context, slug string, limit int) ([]*model.PostAudit, error) {
	args := m.Called(ctx, slug, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PostAudit), args.Error(1)
}

// recordingSleeper captures backoff waits without sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return nil
}

func strPtr(s string) *string { return &s }
