package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"news-social/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentEncode(t *testing.T) {
	assert.Equal(t, "Ladies%20%2B%20Gentlemen", percentEncode("Ladies + Gentlemen"))
	assert.Equal(t, "An%20encoded%20string%21", percentEncode("An encoded string!"))
	assert.Equal(t, "Dogs%2C%20Cats%20%26%20Mice", percentEncode("Dogs, Cats & Mice"))
	assert.Equal(t, "%E2%98%83", percentEncode("☃"))
	assert.Equal(t, "a-b.c_d~e", percentEncode("a-b.c_d~e"))
}

// Reference request from the Twitter "creating a signature" guide.
func TestSignature_ReferenceVector(t *testing.T) {
	s := &signer{
		consumerKey:    "xvz1evFS4wEEPTGEFPHBog",
		consumerSecret: "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		token:          "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		tokenSecret:    "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
		nonce:          func() string { return "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg" },
		now:            func() time.Time { return time.Unix(1318622958, 0) },
	}
	u, err := url.Parse("https://api.twitter.com/1.1/statuses/update.json?include_entities=true")
	require.NoError(t, err)
	params := url.Values{"status": {"Hello Ladies + Gentlemen, a signed OAuth request!"}}

	assert.Equal(t, "hCtSmYh+iHYCEqBWrE7C7hYmtUk=", s.signature(http.MethodPost, u, s.oauthParams(), params))

	header := s.authorization(http.MethodPost, u, params)
	assert.True(t, strings.HasPrefix(header, `OAuth oauth_consumer_key="xvz1evFS4wEEPTGEFPHBog", oauth_nonce=`))
	assert.Contains(t, header, `oauth_signature="hCtSmYh%2BiHYCEqBWrE7C7hYmtUk%3D"`)
	assert.Contains(t, header, `oauth_version="1.0"`)
}

func settings() *model.SocialMediaSettings {
	return &model.SocialMediaSettings{Twitter: model.TwitterCredentials{
		Enabled: true, APIKey: "ck", APISecret: "cs", AccessToken: "at", AccessTokenSecret: "ats",
	}}
}

func newTestClient(srv *httptest.Server) IClient {
	return NewTwitterClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestPost_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		var body tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Text)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1445880548472328192","text":"hello"}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).Post(context.Background(), &model.PostRequest{Text: "hello"}, settings())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "1445880548472328192", *res.PostID)
	assert.Equal(t, "https://twitter.com/i/web/status/1445880548472328192", *res.URL)
}

func TestPost_DuplicateIsValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"You are not allowed to create a Tweet with duplicate content.","title":"Forbidden","status":403}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Post(context.Background(), &model.PostRequest{Text: "hello"}, settings())
	assert.Equal(t, model.ErrorKindValidation, model.KindOf(err))
	assert.Contains(t, err.Error(), "duplicate content")
}

func TestPost_RateLimitedCarriesReset(t *testing.T) {
	reset := time.Now().Add(2 * time.Minute).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests","detail":"Too Many Requests"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Post(context.Background(), &model.PostRequest{Text: "hello"}, settings())
	assert.Equal(t, model.ErrorKindRateLimited, model.KindOf(err))
	assert.InDelta(t, (2 * time.Minute).Seconds(), model.RetryAfterOf(err).Seconds(), 2)
}

func TestPost_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"Unauthorized","detail":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Post(context.Background(), &model.PostRequest{Text: "hello"}, settings())
	assert.Equal(t, model.ErrorKindAuth, model.KindOf(err))
}

func TestCheckToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"1","name":"News Desk","username":"newsdesk"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	st, err := c.CheckToken(context.Background(), settings())
	require.NoError(t, err)
	assert.True(t, st.Valid)
	assert.Equal(t, "@newsdesk", st.Identity)

	_, err = c.RefreshToken(context.Background(), settings())
	assert.ErrorIs(t, err, model.ErrRefreshUnsupported)
	_, err = c.TokenInfo(context.Background(), settings())
	assert.ErrorIs(t, err, model.ErrIntrospectionUnsupported)
}

func TestDeletePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/2/tweets/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"deleted":true}}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv).DeletePost(context.Background(), "42", settings()))
}
