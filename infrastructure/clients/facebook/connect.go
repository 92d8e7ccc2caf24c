package facebook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"news-social/domain/model"
	"news-social/infrastructure/clients/provider"

	"golang.org/x/oauth2"
)

// ConnectScopes are the Page permissions requested by the connect dialog.
var ConnectScopes = []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts", "public_profile"}

type ConnectConfig struct {
	GraphBaseURL  string
	DialogBaseURL string
	APIVersion    string
	HTTPClient    *http.Client
}

// ConnectResult is the credential patch produced by a successful connect.
type ConnectResult struct {
	PageID    string
	PageName  string
	ExpiresAt time.Time
	Patch     map[string]any
}

// Connector runs the browser authorization code flow for a Facebook Page:
// code, short-lived user token, long-lived user token, Page token.
type Connector struct {
	graph      *provider.Graph
	dialogBase string
	now        func() time.Time
}

func NewConnector(cfg ConnectConfig) *Connector {
	dialog := strings.TrimRight(cfg.DialogBaseURL, "/")
	if dialog == "" {
		dialog = "https://www.facebook.com"
	}
	return &Connector{
		graph:      provider.NewGraph(platform, cfg.GraphBaseURL, cfg.APIVersion, cfg.HTTPClient),
		dialogBase: dialog,
		now:        time.Now,
	}
}

func (c *Connector) oauthConfig(fb model.FacebookCredentials, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     fb.AppID,
		ClientSecret: fb.AppSecret,
		RedirectURL:  redirectURI,
		Scopes:       ConnectScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.dialogBase + "/" + c.graph.Version + "/dialog/oauth",
			TokenURL:  c.graph.URL("oauth", "access_token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthURL returns the consent dialog URL carrying state.
func (c *Connector) AuthURL(fb model.FacebookCredentials, redirectURI, state string) (string, error) {
	if fb.AppID == "" || redirectURI == "" {
		return "", errors.New("facebook app id and redirect uri are required")
	}
	return c.oauthConfig(fb, redirectURI).AuthCodeURL(state), nil
}

type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// ListPages returns the Pages the user token manages.
func ListPages(ctx context.Context, g *provider.Graph, userToken string) ([]Page, error) {
	var out struct {
		Data []Page `json:"data"`
	}
	if err := g.Get(ctx, g.URL("me", "accounts"), fieldsParams{Fields: "id,name,access_token", AccessToken: userToken}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Connect exchanges code and resolves the Page token. The configured Page is
// used when set, otherwise the first Page the user manages.
func (c *Connector) Connect(ctx context.Context, fb model.FacebookCredentials, redirectURI, code string) (*ConnectResult, error) {
	if fb.AppID == "" || fb.AppSecret == "" {
		return nil, model.NewValidationError(platform, "facebookAppId and facebookAppSecret must be stored before connecting")
	}
	octx := context.WithValue(ctx, oauth2.HTTPClient, c.graph.HTTP)
	short, err := c.oauthConfig(fb, redirectURI).Exchange(octx, code)
	if err != nil {
		return nil, classifyExchange(err)
	}

	long, err := ExchangeLongLived(ctx, c.graph, fb.AppID, fb.AppSecret, short.AccessToken)
	if err != nil {
		return nil, err
	}

	res := &ConnectResult{PageID: strings.TrimSpace(fb.PageID)}
	var pageToken string
	if res.PageID != "" {
		pageToken, res.PageName, err = PageToken(ctx, c.graph, res.PageID, long.AccessToken)
		if err != nil {
			return nil, err
		}
	} else {
		pages, err := ListPages(ctx, c.graph, long.AccessToken)
		if err != nil {
			return nil, err
		}
		if len(pages) == 0 {
			return nil, model.NewValidationError(platform, "the authorizing user manages no pages")
		}
		res.PageID, res.PageName, pageToken = pages[0].ID, pages[0].Name, pages[0].AccessToken
	}

	res.ExpiresAt = c.now().Add(long.Lifetime()).UTC()
	res.Patch = map[string]any{
		"facebookPageId":          res.PageID,
		"facebookUserAccessToken": long.AccessToken,
		"facebookPageAccessToken": pageToken,
		"facebookTokenExpiresAt":  res.ExpiresAt,
	}
	return res, nil
}

func classifyExchange(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return model.NewNetworkError(platform, err)
	}
	msg := re.ErrorDescription
	if msg == "" {
		msg = provider.Truncate(string(re.Body), 200)
	}
	if re.Response != nil && re.Response.StatusCode >= http.StatusInternalServerError {
		return model.NewNetworkError(platform, errors.New(msg))
	}
	return model.NewAuthError(platform, "code exchange rejected: "+msg)
}
