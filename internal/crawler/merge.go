package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/amazon-review-scraper/internal/database"
	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// ReviewStore is the narrow storage surface the merge engine needs.
// *database.ReviewRepository satisfies it.
type ReviewStore interface {
	ExistsByReviewID(ctx context.Context, reviewID string) (bool, error)
	ExistsByContentKey(ctx context.Context, key models.ContentKey) (bool, error)
	Insert(ctx context.Context, review *models.Review) error
}

// MergeResult is the per-batch outcome breakdown.
type MergeResult struct {
	Seen               int
	Inserted           int
	DuplicateByID      int
	DuplicateByContent int
}

func (r MergeResult) Duplicates() int {
	return r.DuplicateByID + r.DuplicateByContent
}

// MergeEngine decides, for each incoming record, whether it is new or a
// duplicate of something already stored. Existing rows are never mutated:
// first write wins.
type MergeEngine struct {
	store  ReviewStore
	logger *slog.Logger
}

func NewMergeEngine(store ReviewStore, logger *slog.Logger) *MergeEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MergeEngine{
		store:  store,
		logger: logger.With("component", "merge"),
	}
}

// MergePage merges one page of normalized, identified records. Records are
// first deduplicated against each other (a page can render the same review
// twice), then against the store in the order: review ID, content key.
// A unique-constraint violation at insert time means a concurrent writer
// won the race; the record is reclassified as a duplicate and the batch
// continues.
func (m *MergeEngine) MergePage(ctx context.Context, reviews []models.Review) (MergeResult, error) {
	result := MergeResult{Seen: len(reviews)}

	seenIDs := make(map[string]struct{}, len(reviews))
	seenKeys := make(map[models.ContentKey]struct{}, len(reviews))

	for i := range reviews {
		review := &reviews[i]

		if review.ReviewID == "" {
			// no ID and no content; nothing worth storing
			result.DuplicateByContent++
			continue
		}

		// in-batch self-dedup, first occurrence wins
		if _, dup := seenIDs[review.ReviewID]; dup {
			result.DuplicateByID++
			continue
		}
		key := review.ContentKey()
		if _, dup := seenKeys[key]; dup {
			result.DuplicateByContent++
			continue
		}
		seenIDs[review.ReviewID] = struct{}{}
		seenKeys[key] = struct{}{}

		exists, err := m.store.ExistsByReviewID(ctx, review.ReviewID)
		if err != nil {
			return result, fmt.Errorf("id lookup for %s: %w", review.ReviewID, err)
		}
		if exists {
			result.DuplicateByID++
			continue
		}

		exists, err = m.store.ExistsByContentKey(ctx, key)
		if err != nil {
			return result, fmt.Errorf("content lookup for %s: %w", review.ReviewID, err)
		}
		if exists {
			result.DuplicateByContent++
			continue
		}

		if err := m.store.Insert(ctx, review); err != nil {
			if errors.Is(err, database.ErrDuplicateReview) {
				// lost a race with a concurrent writer
				m.logger.Debug("insert raced, reclassified as duplicate",
					"review_id", review.ReviewID)
				result.DuplicateByID++
				continue
			}
			return result, fmt.Errorf("insert %s: %w", review.ReviewID, err)
		}
		result.Inserted++
	}

	return result, nil
}
