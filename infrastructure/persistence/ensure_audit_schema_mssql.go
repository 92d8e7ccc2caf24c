package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePostAuditSchemaMSSQL creates dbo.social_post_audit when missing.
func EnsurePostAuditSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := `IF OBJECT_ID('dbo.social_post_audit', 'U') IS NULL
BEGIN
	CREATE TABLE dbo.[social_post_audit] (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		run_id NVARCHAR(64) NOT NULL,
		article_slug NVARCHAR(255) NOT NULL,
		platform NVARCHAR(32) NOT NULL,
		success BIT NOT NULL,
		error_kind NVARCHAR(32) NULL,
		message NVARCHAR(MAX) NOT NULL DEFAULT '',
		post_id NVARCHAR(255) NULL,
		url NVARCHAR(1024) NULL,
		attempts INT NOT NULL DEFAULT 0,
		created_at DATETIME2 NOT NULL
	);
	CREATE INDEX idx_social_post_audit_slug ON dbo.[social_post_audit] (article_slug, created_at DESC);
END`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure dbo.social_post_audit: %w", err)
	}
	return nil
}
