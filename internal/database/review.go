package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// ErrDuplicateReview is returned when an insert hits the unique constraint
// on review_id. Callers treat it as "already stored", not a failure.
var ErrDuplicateReview = errors.New("review already exists")

const uniqueViolationCode = "23505"

// ReviewRepository handles review persistence
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `
	id, asin, review_id, review_title, review_body, rating,
	review_date, verified_purchase, helpful_votes, reviewer_name,
	variant, created_at, updated_at`

// Insert stores a single review. A unique violation on review_id is
// mapped to ErrDuplicateReview so concurrent writers of the same review
// can tell a lost race from a real storage error.
func (r *ReviewRepository) Insert(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (
			asin, review_id, review_title, review_body, rating,
			review_date, verified_purchase, helpful_votes, reviewer_name, variant
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING id, created_at, updated_at`

	err := r.db.pool.QueryRow(ctx, query,
		review.ASIN, review.ReviewID, review.Title, review.Body, review.Rating,
		review.ReviewDate, review.VerifiedPurchase, review.HelpfulVotes,
		review.ReviewerName, review.Variant,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}

	return nil
}

// ExistsByReviewID reports whether a review with the given identifier is
// already stored.
func (r *ReviewRepository) ExistsByReviewID(ctx context.Context, reviewID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM reviews WHERE review_id = $1)", reviewID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check review id: %w", err)
	}
	return exists, nil
}

// ExistsByContentKey reports whether a review with identical content is
// already stored for the same product. This catches reviews whose site
// identifier changed between crawls.
func (r *ReviewRepository) ExistsByContentKey(ctx context.Context, key models.ContentKey) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM reviews
			WHERE asin = $1 AND review_title = $2 AND review_body = $3 AND review_date = $4
		)`,
		key.ASIN, key.Title, key.Body, key.Date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check content key: %w", err)
	}
	return exists, nil
}

// GetByASIN returns all stored reviews for a product, newest first.
func (r *ReviewRepository) GetByASIN(ctx context.Context, asin string) ([]*models.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		WHERE asin = $1
		ORDER BY review_date DESC, id DESC`, reviewColumns)

	rows, err := r.db.pool.Query(ctx, query, asin)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for asin: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// GetAll returns every stored review, grouped by product.
func (r *ReviewRepository) GetAll(ctx context.Context) ([]*models.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		ORDER BY asin, review_date DESC, id DESC`, reviewColumns)

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// CountByASIN returns the number of stored reviews for a product.
func (r *ReviewRepository) CountByASIN(ctx context.Context, asin string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM reviews WHERE asin = $1", asin).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// DeleteByASIN removes all stored reviews for a product and returns how
// many rows were deleted.
func (r *ReviewRepository) DeleteByASIN(ctx context.Context, asin string) (int64, error) {
	result, err := r.db.pool.Exec(ctx, "DELETE FROM reviews WHERE asin = $1", asin)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reviews: %w", err)
	}
	return result.RowsAffected(), nil
}

// DedupeByContent is a maintenance pass that removes rows sharing the
// same content key, keeping one survivor per group. Rows with a native
// site identifier win over rows with a generated one; among equals the
// oldest row survives.
func (r *ReviewRepository) DedupeByContent(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM reviews
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY asin, review_title, review_body, review_date
					ORDER BY (review_id LIKE 'R%') DESC, id ASC
				) AS rn
				FROM reviews
			) ranked
			WHERE ranked.rn > 1
		)`

	result, err := r.db.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to dedupe reviews: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanReviews(rows pgx.Rows) ([]*models.Review, error) {
	var reviews []*models.Review
	for rows.Next() {
		review := &models.Review{}
		err := rows.Scan(
			&review.ID, &review.ASIN, &review.ReviewID, &review.Title,
			&review.Body, &review.Rating, &review.ReviewDate,
			&review.VerifiedPurchase, &review.HelpfulVotes,
			&review.ReviewerName, &review.Variant,
			&review.CreatedAt, &review.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return reviews, nil
}
