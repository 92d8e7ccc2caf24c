package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"news-social/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settings() *model.SocialMediaSettings {
	return &model.SocialMediaSettings{Facebook: model.FacebookCredentials{
		Enabled: true, AppID: "111", AppSecret: "sec", PageID: "998877", PageAccessToken: "page-tok",
	}}
}

func newTestClient(srv *httptest.Server) IClient {
	return NewFacebookClient(Config{BaseURL: srv.URL, APIVersion: "v19.0", HTTPClient: srv.Client()})
}

func TestPost_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v19.0/998877/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Top story", r.PostForm.Get("message"))
		assert.Equal(t, "https://news.example/news/top", r.PostForm.Get("link"))
		assert.Equal(t, "page-tok", r.PostForm.Get("access_token"))
		_, _ = w.Write([]byte(`{"id":"998877_123"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).Post(context.Background(), &model.PostRequest{Text: "Top story", Link: "https://news.example/news/top"}, settings())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "998877_123", *res.PostID)
	assert.Equal(t, "https://www.facebook.com/998877_123", *res.URL)
}

func TestPost_GraphErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   model.ErrorKind
	}{
		{"expired token", http.StatusBadRequest, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`, model.ErrorKindAuth},
		{"throttled", http.StatusBadRequest, `{"error":{"message":"Application request limit reached","code":4}}`, model.ErrorKindRateLimited},
		{"duplicate", http.StatusBadRequest, `{"error":{"message":"Duplicate status message","code":506}}`, model.ErrorKindValidation},
		{"transient", http.StatusInternalServerError, `{"error":{"message":"An unexpected error has occurred","code":2}}`, model.ErrorKindNetwork},
		{"unknown code", http.StatusBadRequest, `{"error":{"message":"odd","code":9999}}`, model.ErrorKindValidation},
		{"no body", http.StatusServiceUnavailable, ``, model.ErrorKindNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Post(context.Background(), &model.PostRequest{Text: "x"}, settings())
			assert.Equal(t, tc.kind, model.KindOf(err))
		})
	}
}

func TestCheckTokenAndInfo(t *testing.T) {
	exp := time.Now().Add(20 * 24 * time.Hour).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v19.0/me":
			assert.Equal(t, "page-tok", r.URL.Query().Get("access_token"))
			_, _ = w.Write([]byte(`{"id":"998877","name":"News Page"}`))
		case "/v19.0/debug_token":
			assert.Equal(t, "page-tok", r.URL.Query().Get("input_token"))
			assert.Equal(t, "111|sec", r.URL.Query().Get("access_token"))
			_, _ = w.Write([]byte(`{"data":{"app_id":"111","type":"PAGE","is_valid":true,"expires_at":` + strconv.FormatInt(exp, 10) + `,"scopes":["pages_manage_posts"]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	st, err := c.CheckToken(context.Background(), settings())
	require.NoError(t, err)
	assert.True(t, st.Valid)
	assert.Equal(t, "News Page", st.Identity)
	assert.Empty(t, st.Message)

	info, err := c.TokenInfo(context.Background(), settings())
	require.NoError(t, err)
	assert.True(t, info.Valid)
	require.NotNil(t, info.ExpiresAt)
	assert.Equal(t, exp, info.ExpiresAt.Unix())
	assert.Equal(t, []string{"pages_manage_posts"}, info.Scopes)
}

func TestRefreshToken_ThreeStepExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/v19.0/oauth/access_token":
			assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
			assert.Equal(t, "user-short", q.Get("fb_exchange_token"))
			_, _ = w.Write([]byte(`{"access_token":"user-long","token_type":"bearer","expires_in":5184000}`))
		case "/v19.0/998877":
			assert.Equal(t, "user-long", q.Get("access_token"))
			assert.Equal(t, "access_token,name", q.Get("fields"))
			_, _ = w.Write([]byte(`{"access_token":"page-long","name":"News Page","id":"998877"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s := settings()
	s.Facebook.UserAccessToken = "user-short"
	res, err := newTestClient(srv).RefreshToken(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "page-long", res.NewToken)
	assert.Equal(t, 60*24*time.Hour, res.ExpiresIn)
	assert.Equal(t, "page-long", res.Patch["facebookPageAccessToken"])
	assert.Equal(t, "user-long", res.Patch["facebookUserAccessToken"])
	assert.IsType(t, time.Time{}, res.Patch["facebookTokenExpiresAt"])
}

func TestRefreshToken_ExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Error validating access token: Session has expired","code":190}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).RefreshToken(context.Background(), settings())
	assert.Equal(t, model.ErrorKindAuth, model.KindOf(err))
}

func TestDeletePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v19.0/998877_123", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv).DeletePost(context.Background(), "998877_123", settings()))
}
