package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-review-scraper/internal/database"
	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// fakeStore is an in-memory ReviewStore.
type fakeStore struct {
	byID        map[string]models.Review
	byKey       map[models.ContentKey]string
	insertErr   error
	lookupErr   error
	insertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:  make(map[string]models.Review),
		byKey: make(map[models.ContentKey]string),
	}
}

func (s *fakeStore) ExistsByReviewID(_ context.Context, reviewID string) (bool, error) {
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	_, ok := s.byID[reviewID]
	return ok, nil
}

func (s *fakeStore) ExistsByContentKey(_ context.Context, key models.ContentKey) (bool, error) {
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	_, ok := s.byKey[key]
	return ok, nil
}

func (s *fakeStore) Insert(_ context.Context, review *models.Review) error {
	s.insertCalls++
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.byID[review.ReviewID]; ok {
		return database.ErrDuplicateReview
	}
	s.byID[review.ReviewID] = *review
	s.byKey[review.ContentKey()] = review.ReviewID
	return nil
}

func mergeReview(id, title, body, date string) models.Review {
	return models.Review{
		ASIN:       "B0CX23V2ZK",
		ReviewID:   id,
		Title:      title,
		Body:       body,
		ReviewDate: date,
	}
}

func TestMergePage_InsertsNewReviews(t *testing.T) {
	store := newFakeStore()
	engine := NewMergeEngine(store, nil)

	result, err := engine.MergePage(context.Background(), []models.Review{
		mergeReview("R1AAAAAAAA", "Bien", "Conforme.", "2025-03-01"),
		mergeReview("R2BBBBBBBB", "Moyen", "Fragile.", "2025-03-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Seen)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Duplicates())
}

func TestMergePage_Idempotent(t *testing.T) {
	store := newFakeStore()
	engine := NewMergeEngine(store, nil)
	page := []models.Review{
		mergeReview("R1AAAAAAAA", "Bien", "Conforme.", "2025-03-01"),
		mergeReview("R2BBBBBBBB", "Moyen", "Fragile.", "2025-03-02"),
	}

	first, err := engine.MergePage(context.Background(), page)
	require.NoError(t, err)
	require.Equal(t, 2, first.Inserted)

	// merging the same page again changes nothing
	second, err := engine.MergePage(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seen)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.DuplicateByID)
}

func TestMergePage_ContentKeyCatchesChangedID(t *testing.T) {
	store := newFakeStore()
	engine := NewMergeEngine(store, nil)

	_, err := engine.MergePage(context.Background(), []models.Review{
		mergeReview("R1AAAAAAAA", "Bien", "Conforme.", "2025-03-01"),
	})
	require.NoError(t, err)

	// same content shows up under a generated ID on a later crawl
	result, err := engine.MergePage(context.Background(), []models.Review{
		mergeReview("generated_abc123", "Bien", "Conforme.", "2025-03-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.DuplicateByContent)
}

func TestMergePage_InBatchSelfDedup(t *testing.T) {
	store := newFakeStore()
	engine := NewMergeEngine(store, nil)

	result, err := engine.MergePage(context.Background(), []models.Review{
		mergeReview("R1AAAAAAAA", "Bien", "Conforme.", "2025-03-01"),
		mergeReview("R1AAAAAAAA", "Bien", "Conforme.", "2025-03-01"),
		mergeReview("R2BBBBBBBB", "Bien", "Conforme.", "2025-03-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.DuplicateByID)
	// third record has a fresh ID but identical content
	assert.Equal(t, 1, result.DuplicateByContent)
	assert.Equal(t, 1, store.insertCalls)
}

func TestMergePage_RaceReclassifiedAsDuplicate(t *testing.T) {
	store := newFakeStore()
	store.insertErr = database.ErrDuplicateReview
	engine := NewMergeEngine(store, nil)

	result, err := engine.MergePage(context.Background(), []models.Review{
		mergeReview("R1AAAAAAAA", "Bien", "Conforme.", "2025-03-01"),
		mergeReview("R2BBBBBBBB", "Moyen", "Fragile.", "2025-03-02"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.DuplicateByID)
	assert.Equal(t, 2, store.insertCalls)
}

func TestMergePage_StorageErrorAborts(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection refused")
	engine := NewMergeEngine(store, nil)

	_, err := engine.MergePage(context.Background(), []models.Review{
		mergeReview("R1AAAAAAAA", "Bien", "Conforme.", "2025-03-01"),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, database.ErrDuplicateReview)
}

func TestMergePage_EmptyIDSkipped(t *testing.T) {
	store := newFakeStore()
	engine := NewMergeEngine(store, nil)

	result, err := engine.MergePage(context.Background(), []models.Review{
		mergeReview("", "Sans identité", "", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 0, store.insertCalls)
}
