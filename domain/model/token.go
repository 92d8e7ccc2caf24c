package model

import (
	"math"
	"time"
)

// TokenState is the lifecycle position of a platform's stored token.
type TokenState string

const (
	TokenStateUnknown    TokenState = "unknown"
	TokenStateValid      TokenState = "valid"
	TokenStateNearExpiry TokenState = "near_expiry"
	TokenStateRefreshing TokenState = "refreshing"
	TokenStateInvalid    TokenState = "invalid"
)

// TokenStatus is the result of probing the provider with the stored token.
type TokenStatus struct {
	Platform  Platform   `json:"platform"`
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	// DaysLeft is nil for non-expiring tokens.
	DaysLeft  *int       `json:"daysLeft,omitempty"`
	Message   string     `json:"message,omitempty"`
	Identity  string     `json:"identity,omitempty"`
	CheckedAt time.Time  `json:"checkedAt"`
	State     TokenState `json:"state"`
}

// TokenInfo is what provider introspection reports about a token.
type TokenInfo struct {
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Scopes    []string   `json:"scopes,omitempty"`
	Type      string     `json:"type,omitempty"`
	Valid     bool       `json:"valid"`
}

// RefreshResult reports a refresh flow. Patch holds the settings fields to persist.
type RefreshResult struct {
	Success   bool           `json:"success"`
	NewToken  string         `json:"-"`
	ExpiresIn time.Duration  `json:"expiresIn,omitempty"`
	Error     string         `json:"error,omitempty"`
	Patch     map[string]any `json:"-"`
}

// DaysUntil returns whole days from now until t, rounded down; negative once expired.
func DaysUntil(t time.Time, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

// StateFor derives the lifecycle state from a status and the refresh threshold.
func StateFor(s *TokenStatus, thresholdDays int) TokenState {
	if s == nil {
		return TokenStateUnknown
	}
	if !s.Valid {
		return TokenStateInvalid
	}
	if s.DaysLeft != nil && *s.DaysLeft <= thresholdDays {
		return TokenStateNearExpiry
	}
	return TokenStateValid
}

// NeedsRefresh reports whether the scheduled check should attempt a refresh.
// An Unknown state (the probe itself failed) never triggers one.
func (s *TokenStatus) NeedsRefresh(thresholdDays int) bool {
	if s == nil || s.State == TokenStateUnknown {
		return false
	}
	st := StateFor(s, thresholdDays)
	return st == TokenStateInvalid || st == TokenStateNearExpiry
}
