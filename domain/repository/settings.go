package repository

import "context"

// ISettings is the Credential Store: one settings document per category.
type ISettings interface {
	// GetCategorySettings returns the stored fields for category; an empty map when absent.
	GetCategorySettings(ctx context.Context, category string) (map[string]any, error)
	// UpdateCategorySettings merges patch into the category document, stamping actorID.
	UpdateCategorySettings(ctx context.Context, category string, patch map[string]any, actorID string) error
}
