package repository

import (
	"context"

	"news-social/domain/model"
)

// IPostAudit is the append-only log of platform attempts.
type IPostAudit interface {
	CreateAudit(ctx context.Context, audits []*model.PostAudit) error
	ListBySlug(ctx context.Context, slug string, limit int) ([]*model.PostAudit, error)
}
