package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-review-scraper/internal/models"
)

type fakeBatcher struct {
	gotASINs []string
	gotMax   int
}

func (f *fakeBatcher) CrawlBatch(_ context.Context, asins []string, maxPages int) *models.BatchStats {
	f.gotASINs = asins
	f.gotMax = maxPages
	stats := models.NewBatchStats()
	for _, asin := range asins {
		run := models.NewRunStats(asin)
		run.PagesSucceeded = 1
		run.ItemsInserted = 2
		stats.Add(run)
	}
	return stats
}

type fakeReviews struct {
	reviews []*models.Review
	err     error
	deleted int64
	removed int64
}

func (f *fakeReviews) GetByASIN(context.Context, string) ([]*models.Review, error) {
	return f.reviews, f.err
}
func (f *fakeReviews) GetAll(context.Context) ([]*models.Review, error) { return f.reviews, f.err }
func (f *fakeReviews) CountByASIN(context.Context, string) (int, error) {
	return len(f.reviews), f.err
}
func (f *fakeReviews) DeleteByASIN(context.Context, string) (int64, error) { return f.deleted, f.err }
func (f *fakeReviews) DedupeByContent(context.Context) (int64, error)      { return f.removed, f.err }

func testRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/v1/crawl", h.StartCrawl)
	r.Get("/api/v1/reviews/{asin}", h.GetReviews)
	r.Delete("/api/v1/reviews/{asin}", h.DeleteReviews)
	r.Get("/api/v1/reviews/{asin}/stats", h.GetStats)
	r.Get("/api/v1/export", h.ExportReviews)
	r.Post("/api/v1/dedupe", h.Dedupe)
	return r
}

func fixtureReviews() []*models.Review {
	return []*models.Review{
		{ASIN: "B0CX23V2ZK", ReviewID: "R1AAAAAAAA", Title: "Bien", Body: "Conforme.", ReviewDate: "2025-03-01"},
	}
}

func TestStartCrawl(t *testing.T) {
	batcher := &fakeBatcher{}
	h := NewHandlers(batcher, &fakeReviews{}, slog.Default())
	router := testRouter(h)

	body := `{"asins":["B0CX23V2ZK"],"max_pages":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/crawl", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"B0CX23V2ZK"}, batcher.gotASINs)
	assert.Equal(t, 3, batcher.gotMax)

	var resp models.BatchStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ItemsInserted)
}

func TestStartCrawl_RejectsBadInput(t *testing.T) {
	h := NewHandlers(&fakeBatcher{}, &fakeReviews{}, slog.Default())
	router := testRouter(h)

	tests := []struct {
		name string
		body string
	}{
		{name: "no asins", body: `{"asins":[]}`},
		{name: "invalid asin", body: `{"asins":["not-an-asin"]}`},
		{name: "malformed json", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/crawl", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetReviews(t *testing.T) {
	h := NewHandlers(&fakeBatcher{}, &fakeReviews{reviews: fixtureReviews()}, slog.Default())
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/B0CX23V2ZK", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "R1AAAAAAAA")
}

func TestGetReviews_InvalidASIN(t *testing.T) {
	h := NewHandlers(&fakeBatcher{}, &fakeReviews{}, slog.Default())
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/short", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportReviews_CSV(t *testing.T) {
	h := NewHandlers(&fakeBatcher{}, &fakeReviews{reviews: fixtureReviews()}, slog.Default())
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "asin,review_id")
}

func TestExportReviews_UnknownFormat(t *testing.T) {
	h := NewHandlers(&fakeBatcher{}, &fakeReviews{}, slog.Default())
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=parquet", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDedupe(t *testing.T) {
	h := NewHandlers(&fakeBatcher{}, &fakeReviews{removed: 4}, slog.Default())
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dedupe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":4}`, rec.Body.String())
}

func TestDeleteReviews(t *testing.T) {
	h := NewHandlers(&fakeBatcher{}, &fakeReviews{deleted: 2}, slog.Default())
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/B0CX23V2ZK", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":2`)
}
