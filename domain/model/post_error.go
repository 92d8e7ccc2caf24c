package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorKind is the common failure taxonomy every adapter maps provider errors into.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindNotConfigured ErrorKind = "not_configured"
	ErrorKindRateLimited   ErrorKind = "rate_limited"
	ErrorKindAuth          ErrorKind = "auth_error"
	ErrorKindValidation    ErrorKind = "validation_error"
	ErrorKindNetwork       ErrorKind = "network_error"
	ErrorKindUnknown       ErrorKind = "unknown_error"
)

// Retryable reports whether an attempt failing with this kind may be retried with backoff.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindRateLimited || k == ErrorKindNetwork
}

// PostError is a classified per-platform failure.
type PostError struct {
	Kind     ErrorKind
	Platform Platform
	Message  string
	// RetryAfter is the provider's hint, zero when absent.
	RetryAfter time.Duration
	// Payload is the raw provider response, kept for diagnosing unknown errors.
	Payload string
	Err     error
}

func (e *PostError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s %s: %s (retry after %v)", e.Platform, e.Kind, msg, e.RetryAfter)
	}
	return fmt.Sprintf("%s %s: %s", e.Platform, e.Kind, msg)
}

func (e *PostError) Unwrap() error { return e.Err }

func NewAuthError(p Platform, msg string) *PostError {
	return &PostError{Kind: ErrorKindAuth, Platform: p, Message: msg}
}

func NewValidationError(p Platform, msg string) *PostError {
	return &PostError{Kind: ErrorKindValidation, Platform: p, Message: msg}
}

func NewRateLimitError(p Platform, msg string, retryAfter time.Duration) *PostError {
	return &PostError{Kind: ErrorKindRateLimited, Platform: p, Message: msg, RetryAfter: retryAfter}
}

func NewNetworkError(p Platform, err error) *PostError {
	return &PostError{Kind: ErrorKindNetwork, Platform: p, Message: err.Error(), Err: err}
}

func NewUnknownError(p Platform, msg, payload string) *PostError {
	return &PostError{Kind: ErrorKindUnknown, Platform: p, Message: msg, Payload: payload}
}

// ErrRefreshUnsupported is returned by token strategies for tokens that never expire.
var ErrRefreshUnsupported = errors.New("token refresh not supported for this platform")

// ErrIntrospectionUnsupported is returned when a provider exposes no token introspection.
var ErrIntrospectionUnsupported = errors.New("token introspection not supported for this platform")

// KindOf classifies any error into the taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var pe *PostError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindNetwork
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ErrorKindNetwork
	}
	return ErrorKindUnknown
}

// RetryAfterOf returns the provider retry hint carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var pe *PostError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
