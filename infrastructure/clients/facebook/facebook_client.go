package facebook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/clients/provider"
	"news-social/infrastructure/logger"
)

const platform = model.PlatformFacebook

// longLivedFallback is assumed when the exchange omits expires_in.
const longLivedFallback = 60 * 24 * time.Hour

// IClient publishes to a Page feed and manages the Page token.
type IClient interface {
	repository.IPlatformClient
	repository.ITokenStrategy
	repository.IPostDeleter
}

type Config struct {
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
}

type client struct {
	graph *provider.Graph
	now   func() time.Time
}

func NewFacebookClient(cfg Config) IClient {
	return &client{graph: provider.NewGraph(platform, cfg.BaseURL, cfg.APIVersion, cfg.HTTPClient), now: time.Now}
}

func (c *client) Platform() model.Platform { return platform }

type feedParams struct {
	Message     string `url:"message"`
	Link        string `url:"link,omitempty"`
	AccessToken string `url:"access_token"`
}

type tokenParam struct {
	AccessToken string `url:"access_token"`
}

type fieldsParams struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

func (c *client) Post(ctx context.Context, req *model.PostRequest, s *model.SocialMediaSettings) (*model.PostAttemptResult, error) {
	fb := s.Facebook
	var out struct {
		ID string `json:"id"`
	}
	params := feedParams{Message: req.Text, Link: req.Link, AccessToken: fb.PageAccessToken}
	if err := c.graph.PostForm(ctx, c.graph.URL(fb.PageID, "feed"), params, &out); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{"platform": platform, "errorKind": model.KindOf(err)}).Warn("page feed post failed")
		return nil, err
	}
	if out.ID == "" {
		return nil, model.NewUnknownError(platform, "feed response carried no id", "")
	}
	logger.GetLogger().WithFields(map[string]interface{}{"platform": platform, "postId": out.ID}).Info("page post published")
	return &model.PostAttemptResult{
		Platform: platform,
		Success:  true,
		Message:  "posted",
		PostID:   provider.StrPtr(out.ID),
		URL:      provider.StrPtr("https://www.facebook.com/" + out.ID),
	}, nil
}

// CheckToken calls /me with the Page token.
func (c *client) CheckToken(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenStatus, error) {
	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.graph.Get(ctx, c.graph.URL("me"), fieldsParams{Fields: "id,name", AccessToken: s.Facebook.PageAccessToken}, &me); err != nil {
		return nil, err
	}
	st := &model.TokenStatus{Valid: true, Identity: me.Name}
	if me.ID != s.Facebook.PageID {
		st.Message = "token does not belong to the configured page"
	}
	return st, nil
}

type debugTokenParams struct {
	InputToken  string `url:"input_token"`
	AccessToken string `url:"access_token"`
}

type debugTokenResponse struct {
	Data struct {
		AppID     string   `json:"app_id"`
		Type      string   `json:"type"`
		IsValid   bool     `json:"is_valid"`
		ExpiresAt int64    `json:"expires_at"`
		Scopes    []string `json:"scopes"`
	} `json:"data"`
}

// TokenInfo introspects the Page token with the app access token.
func (c *client) TokenInfo(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenInfo, error) {
	return DebugToken(ctx, c.graph, s.Facebook.PageAccessToken, s.Facebook.AppID, s.Facebook.AppSecret)
}

// DebugToken calls /debug_token authenticated as the app (appId|appSecret).
func DebugToken(ctx context.Context, g *provider.Graph, token, appID, appSecret string) (*model.TokenInfo, error) {
	var out debugTokenResponse
	params := debugTokenParams{InputToken: token, AccessToken: appID + "|" + appSecret}
	if err := g.Get(ctx, g.URL("debug_token"), params, &out); err != nil {
		return nil, err
	}
	info := &model.TokenInfo{Valid: out.Data.IsValid, Scopes: out.Data.Scopes, Type: out.Data.Type}
	// expires_at 0 means the token never expires.
	if out.Data.ExpiresAt > 0 {
		t := time.Unix(out.Data.ExpiresAt, 0).UTC()
		info.ExpiresAt = &t
	}
	return info, nil
}

type exchangeParams struct {
	GrantType       string `url:"grant_type"`
	ClientID        string `url:"client_id"`
	ClientSecret    string `url:"client_secret"`
	FBExchangeToken string `url:"fb_exchange_token"`
}

// ExchangedToken is a long-lived token returned by fb_exchange_token.
type ExchangedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Lifetime returns the token lifetime, assuming 60 days when the provider omits it.
func (t *ExchangedToken) Lifetime() time.Duration {
	if t.ExpiresIn <= 0 {
		return longLivedFallback
	}
	return time.Duration(t.ExpiresIn) * time.Second
}

// ExchangeLongLived trades a short-lived or expiring token for a long-lived one.
func ExchangeLongLived(ctx context.Context, g *provider.Graph, appID, appSecret, token string) (*ExchangedToken, error) {
	var out ExchangedToken
	params := exchangeParams{GrantType: "fb_exchange_token", ClientID: appID, ClientSecret: appSecret, FBExchangeToken: token}
	if err := g.Get(ctx, g.URL("oauth", "access_token"), params, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, model.NewUnknownError(g.Platform, "exchange returned no access token", "")
	}
	return &out, nil
}

// PageToken reads the Page access token granted to a user token.
func PageToken(ctx context.Context, g *provider.Graph, pageID, userToken string) (string, string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
		Name        string `json:"name"`
	}
	if err := g.Get(ctx, g.URL(pageID), fieldsParams{Fields: "access_token,name", AccessToken: userToken}, &out); err != nil {
		return "", "", err
	}
	if out.AccessToken == "" {
		return "", "", model.NewAuthError(g.Platform, "user token has no access to page "+pageID)
	}
	return out.AccessToken, out.Name, nil
}

// RefreshToken exchanges the user token (or the Page token when no user token
// is stored) for a long-lived user token, then derives a fresh Page token from it.
func (c *client) RefreshToken(ctx context.Context, s *model.SocialMediaSettings) (*model.RefreshResult, error) {
	fb := s.Facebook
	seed := strings.TrimSpace(fb.UserAccessToken)
	if seed == "" {
		seed = fb.PageAccessToken
	}
	if seed == "" {
		return nil, errors.New("no facebook token to exchange")
	}

	long, err := ExchangeLongLived(ctx, c.graph, fb.AppID, fb.AppSecret, seed)
	if err != nil {
		return nil, err
	}
	pageToken, _, err := PageToken(ctx, c.graph, fb.PageID, long.AccessToken)
	if err != nil {
		return nil, err
	}

	lifetime := long.Lifetime()
	expires := c.now().Add(lifetime).UTC()
	return &model.RefreshResult{
		Success:   true,
		NewToken:  pageToken,
		ExpiresIn: lifetime,
		Patch: map[string]any{
			"facebookUserAccessToken": long.AccessToken,
			"facebookPageAccessToken": pageToken,
			"facebookTokenExpiresAt":  expires,
		},
	}, nil
}

func (c *client) DeletePost(ctx context.Context, postID string, s *model.SocialMediaSettings) error {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.graph.Delete(ctx, c.graph.URL(postID), tokenParam{AccessToken: s.Facebook.PageAccessToken}, &out); err != nil {
		return err
	}
	if !out.Success {
		return model.NewUnknownError(platform, "graph did not confirm deletion", "")
	}
	logger.GetLogger().WithField("postId", postID).Info("page post deleted")
	return nil
}
