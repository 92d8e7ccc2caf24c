package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func onlyPlatformFields(p model.Platform) map[string]any {
	fields := allReadyFields()
	for _, other := range model.AllPlatforms {
		if other != p {
			fields[string(other)+"Enabled"] = false
		}
	}
	return fields
}

func newTokenManager(store *memSettings, strategies ...*MockTokenStrategy) usecase.ITokenLifecycleManager {
	creds := usecase.NewCredentialUsecase(store, time.Hour)
	ss := make([]repository.ITokenStrategy, 0, len(strategies))
	for _, s := range strategies {
		ss = append(ss, s)
	}
	return usecase.NewTokenLifecycleManager(creds, ss, usecase.TokenConfig{ThresholdDays: 10, RequestTimeout: time.Second}, nil)
}

func TestTokenManager_NearExpiryRefreshesOnceAndPersists(t *testing.T) {
	ctx := context.Background()
	store := newMemSettings(onlyPlatformFields(model.PlatformFacebook))
	exp := time.Now().Add(5 * 24 * time.Hour)

	fb := &MockTokenStrategy{platform: model.PlatformFacebook}
	fb.On("CheckToken", mock.Anything, mock.Anything).Return(&model.TokenStatus{Valid: true, ExpiresAt: &exp, Identity: "News Page"}, nil).Once()
	fb.On("RefreshToken", mock.Anything, mock.Anything).Return(&model.RefreshResult{
		Success:   true,
		NewToken:  "fb-page-token-2",
		ExpiresIn: 60 * 24 * time.Hour,
		Patch:     map[string]any{"facebookPageAccessToken": "fb-page-token-2"},
	}, nil).Once()

	tm := newTokenManager(store, fb)
	reports := tm.RunScheduledCheck(ctx)

	require.Len(t, reports, 1)
	assert.True(t, reports[0].Refreshed)
	require.NotNil(t, reports[0].Status.DaysLeft)
	assert.Equal(t, 4, *reports[0].Status.DaysLeft)
	assert.Equal(t, model.TokenStateNearExpiry, reports[0].Status.State)
	fb.AssertNumberOfCalls(t, "RefreshToken", 1)
	assert.Equal(t, "fb-page-token-2", store.field("facebookPageAccessToken"))
	assert.Equal(t, []string{usecase.TokenActor}, store.actors)

	st := tm.States()[model.PlatformFacebook]
	assert.Equal(t, model.TokenStateValid, st.State)
	require.NotNil(t, st.DaysLeft)
	assert.GreaterOrEqual(t, *st.DaysLeft, 59)
	fb.AssertExpectations(t)
}

func TestTokenManager_ValidTokenIsNotRefreshed(t *testing.T) {
	ctx := context.Background()
	store := newMemSettings(onlyPlatformFields(model.PlatformLinkedIn))
	exp := time.Now().Add(45 * 24 * time.Hour)

	li := &MockTokenStrategy{platform: model.PlatformLinkedIn}
	li.On("CheckToken", mock.Anything, mock.Anything).Return(&model.TokenStatus{Valid: true}, nil).Once()
	li.On("TokenInfo", mock.Anything, mock.Anything).Return(&model.TokenInfo{Valid: true, ExpiresAt: &exp}, nil).Once()

	reports := newTokenManager(store, li).RunScheduledCheck(ctx)

	require.Len(t, reports, 1)
	assert.False(t, reports[0].Refreshed)
	assert.Equal(t, model.TokenStateValid, reports[0].Status.State)
	li.AssertNotCalled(t, "RefreshToken", mock.Anything, mock.Anything)
	li.AssertExpectations(t)
}

func TestTokenManager_RefreshFailureKeepsToken(t *testing.T) {
	ctx := context.Background()
	store := newMemSettings(onlyPlatformFields(model.PlatformFacebook))

	fb := &MockTokenStrategy{platform: model.PlatformFacebook}
	fb.On("CheckToken", mock.Anything, mock.Anything).Return(nil, model.NewAuthError(model.PlatformFacebook, "Error validating access token")).Once()
	fb.On("RefreshToken", mock.Anything, mock.Anything).Return(nil, errors.New("exchange rejected")).Once()

	tm := newTokenManager(store, fb)
	reports := tm.RunScheduledCheck(ctx)

	require.Len(t, reports, 1)
	assert.False(t, reports[0].Refreshed)
	assert.Contains(t, reports[0].RefreshError, "exchange rejected")
	assert.Equal(t, model.TokenStateInvalid, reports[0].Status.State)
	assert.Equal(t, "fb-page-token", store.field("facebookPageAccessToken"))
	assert.Zero(t, store.updates)
	assert.Equal(t, model.TokenStateInvalid, tm.States()[model.PlatformFacebook].State)
	fb.AssertExpectations(t)
}

func TestTokenManager_NetworkFailureDoesNotRefresh(t *testing.T) {
	ctx := context.Background()
	store := newMemSettings(onlyPlatformFields(model.PlatformTwitter))

	tw := &MockTokenStrategy{platform: model.PlatformTwitter}
	tw.On("CheckToken", mock.Anything, mock.Anything).Return(nil, model.NewNetworkError(model.PlatformTwitter, context.DeadlineExceeded)).Once()

	reports := newTokenManager(store, tw).RunScheduledCheck(ctx)

	require.Len(t, reports, 1)
	assert.Equal(t, model.TokenStateUnknown, reports[0].Status.State)
	tw.AssertNotCalled(t, "RefreshToken", mock.Anything, mock.Anything)
}

func TestTokenManager_NonExpiringToken(t *testing.T) {
	ctx := context.Background()
	store := newMemSettings(onlyPlatformFields(model.PlatformTelegram))

	tg := &MockTokenStrategy{platform: model.PlatformTelegram}
	tg.On("CheckToken", mock.Anything, mock.Anything).Return(&model.TokenStatus{Valid: true, Identity: "@news_bot"}, nil).Once()
	tg.On("TokenInfo", mock.Anything, mock.Anything).Return(nil, model.ErrIntrospectionUnsupported).Once()

	st, err := newTokenManager(store, tg).CheckTokenStatus(ctx, model.PlatformTelegram)

	require.NoError(t, err)
	assert.True(t, st.Valid)
	assert.Nil(t, st.DaysLeft)
	assert.Equal(t, model.TokenStateValid, st.State)
	assert.Equal(t, "@news_bot", st.Identity)
}

func TestTokenManager_NotConfiguredSkipsProbe(t *testing.T) {
	ctx := context.Background()
	fields := onlyPlatformFields(model.PlatformTelegram)
	fields["telegramBotToken"] = ""
	store := newMemSettings(fields)
	tg := &MockTokenStrategy{platform: model.PlatformTelegram}

	tm := newTokenManager(store, tg)
	assert.Empty(t, tm.RunScheduledCheck(ctx))

	st, err := tm.CheckTokenStatus(ctx, model.PlatformTelegram)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStateUnknown, st.State)
	tg.AssertNotCalled(t, "CheckToken", mock.Anything, mock.Anything)
}

func TestTokenManager_RefreshUnsupported(t *testing.T) {
	ctx := context.Background()
	store := newMemSettings(onlyPlatformFields(model.PlatformTwitter))
	tw := &MockTokenStrategy{platform: model.PlatformTwitter}
	tw.On("RefreshToken", mock.Anything, mock.Anything).Return(nil, model.ErrRefreshUnsupported).Once()

	res, err := newTokenManager(store, tw).RefreshToken(ctx, model.PlatformTwitter)

	assert.ErrorIs(t, err, model.ErrRefreshUnsupported)
	require.NotNil(t, res)
	assert.False(t, res.Success)
}

func TestTokenManager_UnknownPlatform(t *testing.T) {
	tm := newTokenManager(newMemSettings(allReadyFields()))
	_, err := tm.CheckTokenStatus(context.Background(), model.PlatformTwitter)
	assert.Error(t, err)
}

func TestTokenManager_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newMemSettings(onlyPlatformFields(model.PlatformTelegram))
	tg := &MockTokenStrategy{platform: model.PlatformTelegram}
	tg.On("CheckToken", mock.Anything, mock.Anything).Return(&model.TokenStatus{Valid: true}, nil)
	tg.On("TokenInfo", mock.Anything, mock.Anything).Return(nil, model.ErrIntrospectionUnsupported)

	tm := newTokenManager(store, tg)
	done := make(chan error, 1)
	go func() { done <- tm.Start(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := tm.States()[model.PlatformTelegram]
		return ok
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
