package http

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"news-social/domain/model"
	"news-social/infrastructure/clients/facebook"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const callbackURI = "https://admin.example/auth/facebook/callback"

func oauthFixture() (*facebookOAuthHandler, *MockCredentials, *MockConnector, func(r *gin.Engine)) {
	creds, conn := &MockCredentials{}, &MockConnector{}
	h := NewFacebookOAuthHandler(creds, conn, callbackURI).(*facebookOAuthHandler)
	routes := func(r *gin.Engine) {
		r.GET("/auth/facebook", h.GetAuthURL)
		r.GET("/auth/facebook/callback", h.Callback)
		r.GET("/auth/facebook/status", h.Status)
	}
	return h, creds, conn, routes
}

func fbSettings() *model.SocialMediaSettings {
	return &model.SocialMediaSettings{Facebook: model.FacebookCredentials{AppID: "111", AppSecret: "sec", PageID: "998877"}}
}

func TestFacebookOAuth_ConnectFlow(t *testing.T) {
	_, creds, conn, routes := oauthFixture()
	creds.On("Load", mock.Anything).Return(fbSettings(), nil)
	conn.On("AuthURL", fbSettings().Facebook, callbackURI, mock.AnythingOfType("string")).Return("https://www.facebook.com/v19.0/dialog/oauth?state=x", nil)

	rec := serve(t, routes, http.MethodGet, "/auth/facebook", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode(t, rec)["state"].(string)
	require.Len(t, state, 32)

	expires := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	result := &facebook.ConnectResult{PageID: "998877", PageName: "Daily News", ExpiresAt: expires, Patch: map[string]any{"facebookPageAccessToken": "page-tok"}}
	conn.On("Connect", mock.Anything, fbSettings().Facebook, callbackURI, "auth-code").Return(result, nil)
	creds.On("Update", mock.Anything, result.Patch, FacebookOAuthActor).Return(nil)

	rec = serve(t, routes, http.MethodGet, "/auth/facebook/callback?code=auth-code&state="+state, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "Daily News", body["page_name"])

	rec = serve(t, routes, http.MethodGet, "/auth/facebook/callback?code=auth-code&state="+state, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "state is single use")
	creds.AssertExpectations(t)
	conn.AssertNumberOfCalls(t, "Connect", 1)
}

func TestFacebookOAuth_FrontendPage(t *testing.T) {
	h, creds, conn, routes := oauthFixture()
	creds.On("Load", mock.Anything).Return(fbSettings(), nil)
	conn.On("Connect", mock.Anything, mock.Anything, callbackURI, "c").Return(&facebook.ConnectResult{PageID: "1", PageName: "</script>", Patch: map[string]any{}}, nil)
	creds.On("Update", mock.Anything, mock.Anything, FacebookOAuthActor).Return(nil)

	state := h.issueState()
	rec := serve(t, routes, http.MethodGet, "/auth/facebook/callback?frontend=1&code=c&state="+state, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "postMessage")
	assert.NotContains(t, rec.Body.String(), "</script>\"")
}

func TestFacebookOAuth_RejectsBadCallbacks(t *testing.T) {
	h, creds, conn, routes := oauthFixture()
	creds.On("Load", mock.Anything).Return(fbSettings(), nil)

	rec := serve(t, routes, http.MethodGet, "/auth/facebook/callback?state=s", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, routes, http.MethodGet, "/auth/facebook/callback?code=c&state=forged", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, routes, http.MethodGet, "/auth/facebook/callback?error=access_denied", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	expired := h.issueState()
	h.now = func() time.Time { return time.Now().Add(stateTTL + time.Minute) }
	rec = serve(t, routes, http.MethodGet, "/auth/facebook/callback?code=c&state="+expired, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.now = time.Now
	state := h.issueState()
	conn.On("Connect", mock.Anything, mock.Anything, callbackURI, "used").Return(nil, model.NewAuthError(model.PlatformFacebook, "code exchange rejected"))
	rec = serve(t, routes, http.MethodGet, "/auth/facebook/callback?code=used&state="+state, nil, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	creds.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestFacebookOAuth_Status(t *testing.T) {
	_, creds, _, routes := oauthFixture()
	creds.On("Load", mock.Anything).Return(fbSettings(), nil).Once()
	rec := serve(t, routes, http.MethodGet, "/auth/facebook/status", nil, nil)
	assert.Equal(t, false, decode(t, rec)["connected"])

	connected := fbSettings()
	connected.Facebook.PageAccessToken = "page-tok"
	creds.On("Load", mock.Anything).Return(connected, nil).Once()
	rec = serve(t, routes, http.MethodGet, "/auth/facebook/status", nil, nil)
	assert.Equal(t, true, decode(t, rec)["connected"])

	creds.On("Load", mock.Anything).Return(nil, errors.New("mongo down")).Once()
	rec = serve(t, routes, http.MethodGet, "/auth/facebook/status", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
