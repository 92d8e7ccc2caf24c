package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/clients/facebook"
	"news-social/infrastructure/clients/provider"
	"news-social/infrastructure/logger"
)

const platform = model.PlatformInstagram

// containerTTL bounds how long an unpublished container is reused; Meta expires them after 24h.
const containerTTL = time.Hour

// IClient publishes image posts to an Instagram Business Account.
type IClient interface {
	repository.IPlatformClient
	repository.ITokenStrategy
}

type Config struct {
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
}

type client struct {
	graph *provider.Graph
	now   func() time.Time

	mu      sync.Mutex
	pending map[string]pendingContainer
}

// pendingContainer is a created but unpublished media container.
type pendingContainer struct {
	id      string
	created time.Time
}

func NewInstagramClient(cfg Config) IClient {
	return &client{
		graph:   provider.NewGraph(platform, cfg.BaseURL, cfg.APIVersion, cfg.HTTPClient),
		now:     time.Now,
		pending: map[string]pendingContainer{},
	}
}

func (c *client) Platform() model.Platform { return platform }

type containerParams struct {
	ImageURL    string `url:"image_url"`
	Caption     string `url:"caption"`
	AccessToken string `url:"access_token"`
}

type publishParams struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

type fieldsParams struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

type idResponse struct {
	ID string `json:"id"`
}

func validImageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}

// Post creates a media container for the image and caption, then publishes it.
// Text-only posts are refused before any provider call.
func (c *client) Post(ctx context.Context, req *model.PostRequest, s *model.SocialMediaSettings) (*model.PostAttemptResult, error) {
	lg := logger.GetLogger().WithField("platform", platform)
	if !validImageURL(req.ImageURL) {
		return nil, model.NewValidationError(platform, "instagram requires a valid image URL")
	}
	ig := s.Instagram

	key := containerKey(ig.BusinessAccountID, req)
	containerID := c.pendingContainer(key)
	if containerID == "" {
		var container idResponse
		err := c.graph.PostForm(ctx, c.graph.URL(ig.BusinessAccountID, "media"),
			containerParams{ImageURL: req.ImageURL, Caption: req.Text, AccessToken: ig.AccessToken}, &container)
		if err != nil {
			lg.WithField("errorKind", model.KindOf(err)).Warn("media container creation failed")
			return nil, err
		}
		if container.ID == "" {
			return nil, model.NewUnknownError(platform, "media container response carried no id", "")
		}
		containerID = container.ID
		c.rememberContainer(key, containerID)
	} else {
		lg.WithField("containerId", containerID).Info("reusing unpublished media container")
	}

	var media idResponse
	err := c.graph.PostForm(ctx, c.graph.URL(ig.BusinessAccountID, "media_publish"),
		publishParams{CreationID: containerID, AccessToken: ig.AccessToken}, &media)
	if err != nil {
		lg.WithFields(map[string]interface{}{"containerId": containerID, "errorKind": model.KindOf(err)}).Warn("media publish failed")
		if !model.KindOf(err).Retryable() {
			c.forgetContainer(key)
		}
		return nil, err
	}
	c.forgetContainer(key)
	if media.ID == "" {
		return nil, model.NewUnknownError(platform, "media publish response carried no id", "")
	}

	res := &model.PostAttemptResult{Platform: platform, Success: true, Message: "posted", PostID: provider.StrPtr(media.ID)}
	var link struct {
		Permalink string `json:"permalink"`
	}
	if err := c.graph.Get(ctx, c.graph.URL(media.ID), fieldsParams{Fields: "permalink", AccessToken: ig.AccessToken}, &link); err != nil {
		lg.WithError(err).Warn("permalink lookup failed")
	} else {
		res.URL = provider.StrPtr(link.Permalink)
	}
	lg.WithField("mediaId", media.ID).Info("instagram media published")
	return res, nil
}

// containerKey identifies a post by account, image and caption so a retried
// publish reuses the container created by the earlier attempt.
func containerKey(accountID string, req *model.PostRequest) string {
	return accountID + "\x00" + req.ImageURL + "\x00" + req.Text
}

func (c *client) pendingContainer(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, pc := range c.pending {
		if now.Sub(pc.created) > containerTTL {
			delete(c.pending, k)
		}
	}
	return c.pending[key].id
}

func (c *client) rememberContainer(key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key] = pendingContainer{id: id, created: c.now()}
}

func (c *client) forgetContainer(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}

func (c *client) CheckToken(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenStatus, error) {
	var acct struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := c.graph.Get(ctx, c.graph.URL(s.Instagram.BusinessAccountID), fieldsParams{Fields: "id,username", AccessToken: s.Instagram.AccessToken}, &acct); err != nil {
		return nil, err
	}
	return &model.TokenStatus{Valid: true, Identity: "@" + acct.Username}, nil
}

// appSecret is borrowed from the Facebook section; both run on the same Meta app.
func appSecret(s *model.SocialMediaSettings) (string, error) {
	if strings.TrimSpace(s.Facebook.AppSecret) == "" {
		return "", errors.New("instagram token management needs facebookAppSecret")
	}
	return s.Facebook.AppSecret, nil
}

func (c *client) TokenInfo(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenInfo, error) {
	secret, err := appSecret(s)
	if err != nil {
		return nil, err
	}
	return facebook.DebugToken(ctx, c.graph, s.Instagram.AccessToken, s.Instagram.AppID, secret)
}

// RefreshToken re-exchanges the current token for a new long-lived one.
func (c *client) RefreshToken(ctx context.Context, s *model.SocialMediaSettings) (*model.RefreshResult, error) {
	secret, err := appSecret(s)
	if err != nil {
		return nil, err
	}
	tok, err := facebook.ExchangeLongLived(ctx, c.graph, s.Instagram.AppID, secret, s.Instagram.AccessToken)
	if err != nil {
		return nil, err
	}
	lifetime := tok.Lifetime()
	return &model.RefreshResult{
		Success:   true,
		NewToken:  tok.AccessToken,
		ExpiresIn: lifetime,
		Patch: map[string]any{
			"instagramAccessToken":    tok.AccessToken,
			"instagramTokenExpiresAt": c.now().Add(lifetime).UTC(),
		},
	}, nil
}
