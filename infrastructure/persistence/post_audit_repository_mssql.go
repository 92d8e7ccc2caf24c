package persistence

import (
	"context"
	"database/sql"

	"news-social/domain/model"
	"news-social/domain/repository"
)

// PostAuditRepositoryMSSQL writes the post audit log to SQL Server.
type PostAuditRepositoryMSSQL struct {
	db *sql.DB
}

func NewPostAuditRepositoryMSSQL(db *sql.DB) repository.IPostAudit {
	return &PostAuditRepositoryMSSQL{db: db}
}

func (r *PostAuditRepositoryMSSQL) CreateAudit(ctx context.Context, audits []*model.PostAudit) error {
	if len(audits) == 0 {
		return nil
	}
	q := `INSERT INTO dbo.[social_post_audit] (run_id, article_slug, platform, success, error_kind, message, post_id, url, attempts, created_at)
		OUTPUT INSERTED.id VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10)`
	return insertAudits(ctx, r.db, q, audits)
}

func (r *PostAuditRepositoryMSSQL) ListBySlug(ctx context.Context, slug string, limit int) ([]*model.PostAudit, error) {
	q := `SELECT TOP (@p2) id, run_id, article_slug, platform, success, error_kind, message, post_id, url, attempts, created_at
		FROM dbo.[social_post_audit] WHERE article_slug = @p1 ORDER BY created_at DESC, id DESC`
	return queryAudits(ctx, r.db, q, slug, historyLimit(limit))
}
