// Package provider holds the HTTP plumbing shared by the platform adapters.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"news-social/domain/model"
)

// maxBody bounds how much of a provider response is read.
const maxBody = 1 << 20

// NewHTTPClient returns the client adapters use; every request also carries a context deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Response is a fully read provider response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(p model.Platform, v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return model.NewUnknownError(p, fmt.Sprintf("failed to parse response: %v", err), string(r.Body))
	}
	return nil
}

// Do sends req and reads the body. Transport failures come back as NetworkError.
func Do(client *http.Client, p model.Platform, req *http.Request) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, model.NewNetworkError(p, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, model.NewNetworkError(p, fmt.Errorf("read response: %w", err))
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// NewJSONRequest builds a request with a JSON body (nil body sends none).
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// NewFormRequest builds an application/x-www-form-urlencoded request.
func NewFormRequest(ctx context.Context, method, url, encoded string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// ClassifyStatus maps a non-2xx HTTP status to the error taxonomy. Adapters
// consult provider error codes first and fall back to this.
func ClassifyStatus(p model.Platform, r *Response, msg string) *model.PostError {
	if msg == "" {
		msg = fmt.Sprintf("%s API returned status %d", p, r.Status)
	}
	switch {
	case r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden:
		return model.NewAuthError(p, msg)
	case r.Status == http.StatusTooManyRequests:
		return model.NewRateLimitError(p, msg, RetryAfter(r.Header, time.Now()))
	case r.Status == http.StatusBadRequest || r.Status == http.StatusUnprocessableEntity || r.Status == http.StatusConflict:
		e := model.NewValidationError(p, msg)
		e.Payload = string(r.Body)
		return e
	case r.Status >= 500:
		e := model.NewNetworkError(p, fmt.Errorf("%s", msg))
		e.Payload = string(r.Body)
		return e
	}
	return model.NewUnknownError(p, msg, string(r.Body))
}

// RetryAfter reads Retry-After (seconds or HTTP date) or an x-rate-limit-reset epoch.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil && t.After(now) {
			return t.Sub(now)
		}
	}
	if v := strings.TrimSpace(h.Get("x-rate-limit-reset")); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if t := time.Unix(epoch, 0); t.After(now) {
				return t.Sub(now)
			}
		}
	}
	return 0
}

// Truncate shortens provider payloads for log fields.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
