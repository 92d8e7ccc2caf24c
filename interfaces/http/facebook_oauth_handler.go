package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"news-social/domain/model"
	"news-social/infrastructure/clients/facebook"
	"news-social/infrastructure/logger"
	"news-social/usecase"

	"github.com/gin-gonic/gin"
)

// FacebookOAuthActor stamps settings writes made by the connect flow.
const FacebookOAuthActor = "facebook-oauth"

const stateTTL = 10 * time.Minute

type IFacebookOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

// FacebookConnector runs the authorization code exchange.
type FacebookConnector interface {
	AuthURL(fb model.FacebookCredentials, redirectURI, state string) (string, error)
	Connect(ctx context.Context, fb model.FacebookCredentials, redirectURI, code string) (*facebook.ConnectResult, error)
}

type facebookOAuthHandler struct {
	creds       usecase.ICredentialUsecase
	connector   FacebookConnector
	redirectURI string
	now         func() time.Time

	stateMu sync.Mutex
	states  map[string]time.Time // state -> expiry
}

func NewFacebookOAuthHandler(creds usecase.ICredentialUsecase, connector FacebookConnector, redirectURI string) IFacebookOAuthHandler {
	return &facebookOAuthHandler{
		creds:       creds,
		connector:   connector,
		redirectURI: redirectURI,
		now:         time.Now,
		states:      map[string]time.Time{},
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (h *facebookOAuthHandler) issueState() string {
	state := randomState()
	now := h.now()
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	for s, exp := range h.states {
		if now.After(exp) {
			delete(h.states, s)
		}
	}
	h.states[state] = now.Add(stateTTL)
	return state
}

// consumeState accepts each unexpired state once.
func (h *facebookOAuthHandler) consumeState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return !h.now().After(exp)
}

// GetAuthURL builds the consent dialog URL from the stored app id.
func (h *facebookOAuthHandler) GetAuthURL(c *gin.Context) {
	settings, err := h.creds.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	state := h.issueState()
	authURL, err := h.connector.AuthURL(settings.Facebook, h.redirectURI, state)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "facebook oauth not configured: " + err.Error()})
		return
	}
	if c.Query("redirect") == "1" {
		c.Redirect(http.StatusFound, authURL)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL, "state": state})
}

// Callback exchanges the code and stores the resulting Page credentials.
func (h *facebookOAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": e, "error_description": c.Query("error_description")})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	if !h.consumeState(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	settings, err := h.creds.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	res, err := h.connector.Connect(c.Request.Context(), settings.Facebook, h.redirectURI, code)
	if err != nil {
		lg.WithField("error", err.Error()).Error("facebook connect failed")
		writeError(c, err)
		return
	}
	if err := h.creds.Update(c.Request.Context(), res.Patch, FacebookOAuthActor); err != nil {
		lg.WithField("error", err.Error()).Error("failed to store facebook page token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_token_failed"})
		return
	}
	lg.WithFields(map[string]interface{}{"pageId": res.PageID, "expiresAt": res.ExpiresAt}).Info("facebook page connected")

	payload := gin.H{"connected": true, "page_id": res.PageID, "page_name": res.PageName, "expires_at": res.ExpiresAt}
	if c.Query("frontend") == "1" {
		writeOpenerPage(c, payload)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// writeOpenerPage notifies the admin window that opened the popup and closes it.
func writeOpenerPage(c *gin.Context, payload gin.H) {
	payload["source"] = "facebook-oauth"
	data, _ := json.Marshal(payload)
	page := fmt.Sprintf(`<!DOCTYPE html><html><head><title>Facebook Connected</title></head><body><script>var m=%s;if(window.opener){window.opener.postMessage(m,'*');window.close();}else{document.body.textContent='Facebook connected: '+m.page_name;}</script></body></html>`, data)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Status reports whether a Page token is stored.
func (h *facebookOAuthHandler) Status(c *gin.Context) {
	settings, err := h.creds.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	fb := settings.Facebook
	if fb.PageAccessToken == "" {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	resp := gin.H{"connected": true, "page_id": fb.PageID}
	if fb.TokenExpiresAt != nil {
		resp["expires_at"] = fb.TokenExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}
