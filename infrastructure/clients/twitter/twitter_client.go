package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/clients/provider"
	"news-social/infrastructure/logger"
)

const platform = model.PlatformTwitter

// IClient posts tweets, probes credentials and deletes tweets.
type IClient interface {
	repository.IPlatformClient
	repository.ITokenStrategy
	repository.IPostDeleter
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

type client struct {
	baseURL string
	http    *http.Client
	nonce   func() string
	now     func() time.Time
}

func NewTwitterClient(cfg Config) IClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = provider.NewHTTPClient(30 * time.Second)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.twitter.com"
	}
	return &client{baseURL: base, http: hc, nonce: randomNonce, now: time.Now}
}

func (c *client) Platform() model.Platform { return platform }

type tweetRequest struct {
	Text string `json:"text"`
}

type apiError struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Detail  string `json:"detail"`
	Type    string `json:"type"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Title  string     `json:"title"`
	Detail string     `json:"detail"`
	Errors []apiError `json:"errors,omitempty"`
}

func (r *tweetResponse) message() string {
	if r.Detail != "" {
		return r.Detail
	}
	for _, e := range r.Errors {
		if e.Message != "" {
			return e.Message
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	return r.Title
}

func (c *client) signed(ctx context.Context, s *model.SocialMediaSettings, method, path string, body any) (*http.Request, error) {
	req, err := provider.NewJSONRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	sg := &signer{
		consumerKey:    s.Twitter.APIKey,
		consumerSecret: s.Twitter.APISecret,
		token:          s.Twitter.AccessToken,
		tokenSecret:    s.Twitter.AccessTokenSecret,
		nonce:          c.nonce,
		now:            c.now,
	}
	req.Header.Set("Authorization", sg.authorization(method, req.URL, nil))
	return req, nil
}

func (c *client) Post(ctx context.Context, req *model.PostRequest, s *model.SocialMediaSettings) (*model.PostAttemptResult, error) {
	lg := logger.GetLogger().WithField("platform", platform)
	httpReq, err := c.signed(ctx, s, http.MethodPost, "/2/tweets", tweetRequest{Text: req.Text})
	if err != nil {
		return nil, err
	}
	resp, err := provider.Do(c.http, platform, httpReq)
	if err != nil {
		return nil, err
	}

	var out tweetResponse
	_ = resp.Decode(platform, &out)
	if resp.Status != http.StatusCreated && resp.Status != http.StatusOK {
		pe := classify(resp, out.message())
		lg.WithFields(map[string]interface{}{"status": resp.Status, "errorKind": pe.Kind}).Warn("tweet rejected")
		return nil, pe
	}
	if out.Data.ID == "" {
		return nil, model.NewUnknownError(platform, "tweet response carried no id", string(resp.Body))
	}

	lg.WithFields(map[string]interface{}{"tweetId": out.Data.ID, "textLength": len([]rune(req.Text))}).Info("tweet posted")
	return &model.PostAttemptResult{
		Platform: platform,
		Success:  true,
		Message:  "posted",
		PostID:   provider.StrPtr(out.Data.ID),
		URL:      provider.StrPtr("https://twitter.com/i/web/status/" + url.PathEscape(out.Data.ID)),
	}, nil
}

// classify maps Twitter responses. A 403 mentioning duplicate content is a
// validation outcome, not an auth failure.
func classify(resp *provider.Response, msg string) *model.PostError {
	if resp.Status == http.StatusForbidden && strings.Contains(strings.ToLower(msg), "duplicate") {
		e := model.NewValidationError(platform, "duplicate content: "+msg)
		e.Payload = string(resp.Body)
		return e
	}
	return provider.ClassifyStatus(platform, resp, msg)
}

type meResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
	Title  string     `json:"title"`
	Detail string     `json:"detail"`
	Errors []apiError `json:"errors,omitempty"`
}

func (c *client) CheckToken(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenStatus, error) {
	req, err := c.signed(ctx, s, http.MethodGet, "/2/users/me", nil)
	if err != nil {
		return nil, err
	}
	resp, err := provider.Do(c.http, platform, req)
	if err != nil {
		return nil, err
	}
	var me meResponse
	_ = resp.Decode(platform, &me)
	if !resp.OK() {
		msg := me.Detail
		if msg == "" && len(me.Errors) > 0 {
			msg = me.Errors[0].Message
		}
		return nil, provider.ClassifyStatus(platform, resp, msg)
	}
	return &model.TokenStatus{
		Valid:    true,
		Identity: "@" + me.Data.Username,
		Message:  fmt.Sprintf("authenticated as %s", me.Data.Name),
	}, nil
}

// TokenInfo: OAuth 1.0a user tokens carry no introspection endpoint.
func (c *client) TokenInfo(context.Context, *model.SocialMediaSettings) (*model.TokenInfo, error) {
	return nil, model.ErrIntrospectionUnsupported
}

// RefreshToken: OAuth 1.0a user tokens do not expire.
func (c *client) RefreshToken(context.Context, *model.SocialMediaSettings) (*model.RefreshResult, error) {
	return nil, model.ErrRefreshUnsupported
}

func (c *client) DeletePost(ctx context.Context, postID string, s *model.SocialMediaSettings) error {
	req, err := c.signed(ctx, s, http.MethodDelete, "/2/tweets/"+url.PathEscape(postID), nil)
	if err != nil {
		return err
	}
	resp, err := provider.Do(c.http, platform, req)
	if err != nil {
		return err
	}
	var out struct {
		Data struct {
			Deleted bool `json:"deleted"`
		} `json:"data"`
		Detail string `json:"detail"`
	}
	_ = resp.Decode(platform, &out)
	if !resp.OK() {
		return provider.ClassifyStatus(platform, resp, out.Detail)
	}
	if !out.Data.Deleted {
		return model.NewUnknownError(platform, "tweet was not deleted", string(resp.Body))
	}
	logger.GetLogger().WithField("tweetId", postID).Info("tweet deleted")
	return nil
}
