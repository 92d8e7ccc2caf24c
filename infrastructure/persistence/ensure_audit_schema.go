package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePostAuditSchema creates the audit table and its slug index when missing.
func EnsurePostAuditSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS social_post_audit (
			id BIGSERIAL PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL,
			article_slug VARCHAR(255) NOT NULL,
			platform VARCHAR(32) NOT NULL,
			success BOOLEAN NOT NULL,
			error_kind VARCHAR(32),
			message TEXT NOT NULL DEFAULT '',
			post_id VARCHAR(255),
			url TEXT,
			attempts INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_social_post_audit_slug ON social_post_audit (article_slug, created_at DESC)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure social_post_audit: %w", err)
		}
	}
	return nil
}
