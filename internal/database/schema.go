package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		asin VARCHAR(20) NOT NULL,
		review_id VARCHAR(64) NOT NULL,
		review_title VARCHAR(500),
		review_body TEXT,
		rating DOUBLE PRECISION,
		review_date VARCHAR(10),
		verified_purchase BOOLEAN NOT NULL DEFAULT FALSE,
		helpful_votes INTEGER NOT NULL DEFAULT 0,
		reviewer_name VARCHAR(255),
		variant VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_review_id UNIQUE (review_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_asin ON reviews (asin)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_asin_date ON reviews (asin, review_date)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_content_key
		ON reviews (asin, review_title, review_body, review_date)`,
	`CREATE TABLE IF NOT EXISTS outbox_event (
		id UUID PRIMARY KEY,
		aggregate_type VARCHAR(64) NOT NULL,
		aggregate_id VARCHAR(64) NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		payload JSONB NOT NULL,
		target_stream VARCHAR(128) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		published_at TIMESTAMPTZ,
		next_attempt_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status_attempt
		ON outbox_event (status, next_attempt_at)`,
}

// EnsureSchema creates the tables and indexes the scraper needs. The
// UNIQUE constraint on review_id is the concurrency safety net the merge
// engine relies on.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
