package repository

import (
	"context"

	"news-social/domain/model"
)

// IPlatformClient publishes a post to one provider. Errors are *model.PostError values.
type IPlatformClient interface {
	Platform() model.Platform
	Post(ctx context.Context, req *model.PostRequest, settings *model.SocialMediaSettings) (*model.PostAttemptResult, error)
}

// ITokenStrategy is the per-platform check/introspect/refresh behaviour used by
// the token lifecycle manager.
type ITokenStrategy interface {
	Platform() model.Platform
	// CheckToken probes an authenticated "who am I" style endpoint.
	CheckToken(ctx context.Context, settings *model.SocialMediaSettings) (*model.TokenStatus, error)
	// TokenInfo introspects the token; model.ErrIntrospectionUnsupported when the provider has no such endpoint.
	TokenInfo(ctx context.Context, settings *model.SocialMediaSettings) (*model.TokenInfo, error)
	// RefreshToken runs the provider exchange; model.ErrRefreshUnsupported for non-expiring tokens.
	RefreshToken(ctx context.Context, settings *model.SocialMediaSettings) (*model.RefreshResult, error)
}

// IPostDeleter is implemented by clients that can remove a published post.
type IPostDeleter interface {
	DeletePost(ctx context.Context, postID string, settings *model.SocialMediaSettings) error
}
