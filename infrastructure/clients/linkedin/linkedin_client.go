package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/clients/provider"
	"news-social/infrastructure/logger"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

const platform = model.PlatformLinkedIn

// IClient publishes organization shares and renews the OAuth 2.0 token.
type IClient interface {
	repository.IPlatformClient
	repository.ITokenStrategy
}

type Config struct {
	BaseURL    string
	TokenURL   string
	HTTPClient *http.Client
}

type client struct {
	baseURL       string
	tokenURL      string
	introspectURL string
	http          *http.Client
	now           func() time.Time
}

func NewLinkedInClient(cfg Config) IClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = provider.NewHTTPClient(30 * time.Second)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.linkedin.com"
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	}
	return &client{
		baseURL:       base,
		tokenURL:      tokenURL,
		introspectURL: strings.TrimSuffix(tokenURL, "accessToken") + "introspectToken",
		http:          hc,
		now:           time.Now,
	}
}

func (c *client) Platform() model.Platform { return platform }

type text struct {
	Text string `json:"text"`
}

type media struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
	Title       *text  `json:"title,omitempty"`
	Description *text  `json:"description,omitempty"`
}

type shareContent struct {
	ShareCommentary    text    `json:"shareCommentary"`
	ShareMediaCategory string  `json:"shareMediaCategory"`
	Media              []media `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent shareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

type apiError struct {
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Message          string `json:"message"`
	Status           int    `json:"status"`
}

func (c *client) request(ctx context.Context, method, path, token string, body any) (*provider.Response, error) {
	req, err := provider.NewJSONRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	return provider.Do(c.http, platform, req)
}

func failure(resp *provider.Response) *model.PostError {
	var e apiError
	_ = resp.Decode(platform, &e)
	return provider.ClassifyStatus(platform, resp, e.Message)
}

func newUgcPost(orgID string, req *model.PostRequest) ugcPost {
	var p ugcPost
	p.Author = "urn:li:organization:" + orgID
	p.LifecycleState = "PUBLISHED"
	p.Visibility.MemberNetworkVisibility = "PUBLIC"
	sc := shareContent{ShareCommentary: text{Text: req.Text}, ShareMediaCategory: "NONE"}
	if req.Link != "" {
		m := media{Status: "READY", OriginalURL: req.Link}
		if title := req.Article.Title.Pick("en"); title != "" {
			m.Title = &text{Text: title}
		}
		if desc := req.Article.Description.Pick("en"); desc != "" {
			m.Description = &text{Text: desc}
		}
		sc.ShareMediaCategory = "ARTICLE"
		sc.Media = []media{m}
	}
	p.SpecificContent.ShareContent = sc
	return p
}

// Post creates a UGC share authored by the organization.
func (c *client) Post(ctx context.Context, req *model.PostRequest, s *model.SocialMediaSettings) (*model.PostAttemptResult, error) {
	li := s.LinkedIn
	resp, err := c.request(ctx, http.MethodPost, "/v2/ugcPosts", li.AccessToken, newUgcPost(li.OrganizationID, req))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		pe := failure(resp)
		logger.GetLogger().WithFields(map[string]interface{}{"platform": platform, "status": resp.Status, "errorKind": pe.Kind}).Warn("ugc post rejected")
		return nil, pe
	}
	urn := resp.Header.Get("x-restli-id")
	if urn == "" {
		var out struct {
			ID string `json:"id"`
		}
		_ = resp.Decode(platform, &out)
		urn = out.ID
	}
	if urn == "" {
		return nil, model.NewUnknownError(platform, "ugc post response carried no id", string(resp.Body))
	}
	logger.GetLogger().WithFields(map[string]interface{}{"platform": platform, "urn": urn}).Info("linkedin share published")
	return &model.PostAttemptResult{
		Platform: platform,
		Success:  true,
		Message:  "posted",
		PostID:   provider.StrPtr(urn),
		URL:      provider.StrPtr("https://www.linkedin.com/feed/update/" + urn),
	}, nil
}

// CheckToken calls /v2/me and, best effort, resolves the organization name.
func (c *client) CheckToken(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenStatus, error) {
	li := s.LinkedIn
	resp, err := c.request(ctx, http.MethodGet, "/v2/me", li.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, failure(resp)
	}
	var me struct {
		ID        string `json:"id"`
		FirstName string `json:"localizedFirstName"`
		LastName  string `json:"localizedLastName"`
	}
	_ = resp.Decode(platform, &me)
	st := &model.TokenStatus{Valid: true, Identity: strings.TrimSpace(me.FirstName + " " + me.LastName), ExpiresAt: li.TokenExpiresAt}

	org, err := c.request(ctx, http.MethodGet, "/v2/organizations/"+url.PathEscape(li.OrganizationID), li.AccessToken, nil)
	switch {
	case err != nil:
		logger.GetLogger().WithError(err).Warn("organization lookup failed")
	case !org.OK():
		st.Message = fmt.Sprintf("token cannot read organization %s (status %d)", li.OrganizationID, org.Status)
	default:
		var o struct {
			LocalizedName string `json:"localizedName"`
		}
		if org.Decode(platform, &o) == nil && o.LocalizedName != "" {
			st.Identity = o.LocalizedName
		}
	}
	return st, nil
}

type introspectParams struct {
	ClientID     string `url:"client_id"`
	ClientSecret string `url:"client_secret"`
	Token        string `url:"token"`
}

// TokenInfo uses the OAuth token introspection endpoint.
func (c *client) TokenInfo(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenInfo, error) {
	li := s.LinkedIn
	v, err := query.Values(introspectParams{ClientID: li.ClientID, ClientSecret: li.ClientSecret, Token: li.AccessToken})
	if err != nil {
		return nil, fmt.Errorf("encode introspection form: %w", err)
	}
	req, err := provider.NewFormRequest(ctx, http.MethodPost, c.introspectURL, v.Encode())
	if err != nil {
		return nil, err
	}
	resp, err := provider.Do(c.http, platform, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, failure(resp)
	}
	var out struct {
		Active    bool   `json:"active"`
		ExpiresAt int64  `json:"expires_at"`
		Scope     string `json:"scope"`
		AuthType  string `json:"auth_type"`
	}
	if err := resp.Decode(platform, &out); err != nil {
		return nil, err
	}
	info := &model.TokenInfo{Valid: out.Active, Type: out.AuthType}
	if out.Scope != "" {
		info.Scopes = strings.Split(out.Scope, ",")
	}
	if out.ExpiresAt > 0 {
		t := time.Unix(out.ExpiresAt, 0).UTC()
		info.ExpiresAt = &t
	}
	return info, nil
}

// RefreshToken runs the refresh_token grant through x/oauth2.
func (c *client) RefreshToken(ctx context.Context, s *model.SocialMediaSettings) (*model.RefreshResult, error) {
	li := s.LinkedIn
	if strings.TrimSpace(li.RefreshToken) == "" {
		return nil, errors.New("no linkedin refresh token stored")
	}
	conf := &oauth2.Config{
		ClientID:     li.ClientID,
		ClientSecret: li.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: c.tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	octx := context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := conf.TokenSource(octx, &oauth2.Token{RefreshToken: li.RefreshToken}).Token()
	if err != nil {
		return nil, classifyOAuth(err)
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = li.RefreshToken
	}
	patch := map[string]any{
		"linkedinAccessToken":  tok.AccessToken,
		"linkedinRefreshToken": refresh,
	}
	var lifetime time.Duration
	if !tok.Expiry.IsZero() {
		lifetime = tok.Expiry.Sub(c.now()).Round(time.Second)
		patch["linkedinTokenExpiresAt"] = tok.Expiry.UTC()
	}
	return &model.RefreshResult{Success: true, NewToken: tok.AccessToken, ExpiresIn: lifetime, Patch: patch}, nil
}

func classifyOAuth(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return model.NewNetworkError(platform, err)
	}
	msg := re.ErrorDescription
	if msg == "" {
		msg = re.ErrorCode
	}
	if msg == "" {
		msg = provider.Truncate(string(re.Body), 200)
	}
	if re.ErrorCode == "invalid_grant" || re.ErrorCode == "invalid_client" {
		return model.NewAuthError(platform, msg)
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	return provider.ClassifyStatus(platform, &provider.Response{Status: status, Header: http.Header{}, Body: re.Body}, msg)
}
