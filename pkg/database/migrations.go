package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search on service review
// summaries/recommendations, the dashboard's primary free-text search
// surface over past reviews.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// GIN index for review summary full-text search
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_service_reviews_summary_gin
		ON service_reviews USING gin(to_tsvector('english', COALESCE(summary, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create summary GIN index: %w", err)
	}

	// GIN index for review recommendations full-text search
	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_service_reviews_recommendations_gin
		ON service_reviews USING gin(to_tsvector('english', COALESCE(recommendations, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create recommendations GIN index: %w", err)
	}

	return nil
}
