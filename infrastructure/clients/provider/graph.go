package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"news-social/domain/model"

	"github.com/google/go-querystring/query"
)

// Graph is a small Facebook Graph API caller shared by the Facebook and Instagram adapters.
type Graph struct {
	Platform model.Platform
	BaseURL  string
	Version  string
	HTTP     *http.Client
}

// GraphError is the "error" object of a Graph API response.
type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

// NewGraph fills in defaults for empty fields.
func NewGraph(p model.Platform, baseURL, version string, hc *http.Client) *Graph {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	if version == "" {
		version = "v19.0"
	}
	if hc == nil {
		hc = NewHTTPClient(30 * time.Second)
	}
	return &Graph{Platform: p, BaseURL: strings.TrimRight(baseURL, "/"), Version: version, HTTP: hc}
}

// URL joins the versioned base with path segments.
func (g *Graph) URL(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return g.BaseURL + "/" + g.Version + "/" + strings.Join(parts, "/")
}

// Get issues a GET with params encoded by go-querystring and decodes the body into out.
func (g *Graph) Get(ctx context.Context, endpoint string, params any, out any) error {
	v, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("encode graph query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return g.send(req, out)
}

// PostForm sends params as a form body.
func (g *Graph) PostForm(ctx context.Context, endpoint string, params any, out any) error {
	v, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("encode graph form: %w", err)
	}
	req, err := NewFormRequest(ctx, http.MethodPost, endpoint, v.Encode())
	if err != nil {
		return err
	}
	return g.send(req, out)
}

// Delete issues a DELETE with the params in the query string.
func (g *Graph) Delete(ctx context.Context, endpoint string, params any, out any) error {
	v, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("encode graph query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint+"?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return g.send(req, out)
}

func (g *Graph) send(req *http.Request, out any) error {
	resp, err := Do(g.HTTP, g.Platform, req)
	if err != nil {
		return err
	}
	var env struct {
		Error *GraphError `json:"error"`
	}
	_ = json.Unmarshal(resp.Body, &env)
	if env.Error != nil || !resp.OK() {
		return ClassifyGraph(g.Platform, resp, env.Error)
	}
	if out == nil {
		return nil
	}
	return resp.Decode(g.Platform, out)
}

// ClassifyGraph maps Graph API error codes, falling back to the HTTP status.
func ClassifyGraph(p model.Platform, resp *Response, ge *GraphError) *model.PostError {
	if ge == nil {
		return ClassifyStatus(p, resp, "")
	}
	msg := ge.Message
	if ge.Code != 0 {
		msg = fmt.Sprintf("(#%d) %s", ge.Code, ge.Message)
	}
	var e *model.PostError
	switch {
	case ge.Code == 190 || ge.Code == 102 || ge.Code == 10 || (ge.Code >= 200 && ge.Code < 300):
		e = model.NewAuthError(p, msg)
	case ge.Code == 4 || ge.Code == 17 || ge.Code == 32 || ge.Code == 613 || ge.Code == 368 || ge.Code == 80001:
		e = model.NewRateLimitError(p, msg, RetryAfter(resp.Header, time.Now()))
	case ge.Code == 506 || ge.Code == 100 || ge.Code == 9004 || ge.Code == 36003:
		e = model.NewValidationError(p, msg)
	case ge.Code == 1 || ge.Code == 2:
		e = model.NewNetworkError(p, fmt.Errorf("%s", msg))
	default:
		return ClassifyStatus(p, resp, msg)
	}
	e.Payload = string(resp.Body)
	return e
}
