package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
)

const defaultHistoryLimit = 50

// PostAuditRepository writes the post audit log to PostgreSQL.
type PostAuditRepository struct {
	db *sql.DB
}

func NewPostAuditRepository(db *sql.DB) repository.IPostAudit {
	return &PostAuditRepository{db: db}
}

func (r *PostAuditRepository) CreateAudit(ctx context.Context, audits []*model.PostAudit) error {
	if len(audits) == 0 {
		return nil
	}
	q := `INSERT INTO social_post_audit (run_id, article_slug, platform, success, error_kind, message, post_id, url, attempts, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`
	return insertAudits(ctx, r.db, q, audits)
}

func (r *PostAuditRepository) ListBySlug(ctx context.Context, slug string, limit int) ([]*model.PostAudit, error) {
	q := `SELECT id, run_id, article_slug, platform, success, error_kind, message, post_id, url, attempts, created_at
		FROM social_post_audit WHERE article_slug = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	return queryAudits(ctx, r.db, q, slug, historyLimit(limit))
}

func historyLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultHistoryLimit
	}
	return limit
}

// insertAudits runs q once per row inside a transaction; q must return the new id.
func insertAudits(ctx context.Context, db *sql.DB, q string, audits []*model.PostAudit) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	for _, a := range audits {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		row := tx.QueryRowContext(ctx, q,
			a.RunID, a.ArticleSlug, string(a.Platform), a.Success, nullString(string(a.ErrorKind)),
			a.Message, a.PostID, a.URL, a.Attempts, a.CreatedAt)
		if err = row.Scan(&a.ID); err != nil {
			return fmt.Errorf("insert audit for %s: %w", a.Platform, err)
		}
	}
	return tx.Commit()
}

func queryAudits(ctx context.Context, db *sql.DB, q string, args ...any) ([]*model.PostAudit, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*model.PostAudit, 0)
	for rows.Next() {
		a := &model.PostAudit{}
		var platform string
		var kind, postID, link sql.NullString
		if err := rows.Scan(&a.ID, &a.RunID, &a.ArticleSlug, &platform, &a.Success, &kind, &a.Message, &postID, &link, &a.Attempts, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Platform = model.Platform(platform)
		a.ErrorKind = model.ErrorKind(kind.String)
		if postID.Valid {
			a.PostID = &postID.String
		}
		if link.Valid {
			a.URL = &link.String
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
