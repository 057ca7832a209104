package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/amazon-review-scraper/internal/crawler"
	"github.com/maltedev/amazon-review-scraper/internal/export"
	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// Batcher runs a crawl for a set of ASINs. *crawler.BatchCoordinator
// satisfies it.
type Batcher interface {
	CrawlBatch(ctx context.Context, asins []string, maxPages int) *models.BatchStats
}

// ReviewReader is the read side of the review store the API serves from.
type ReviewReader interface {
	GetByASIN(ctx context.Context, asin string) ([]*models.Review, error)
	GetAll(ctx context.Context) ([]*models.Review, error)
	CountByASIN(ctx context.Context, asin string) (int, error)
	DeleteByASIN(ctx context.Context, asin string) (int64, error)
	DedupeByContent(ctx context.Context) (int64, error)
}

type Handlers struct {
	batcher Batcher
	reviews ReviewReader
	logger  *slog.Logger
}

func NewHandlers(batcher Batcher, reviews ReviewReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		batcher: batcher,
		reviews: reviews,
		logger:  logger,
	}
}

// CrawlRequest represents the request to crawl reviews for products
type CrawlRequest struct {
	ASINs    []string `json:"asins"`
	MaxPages int      `json:"max_pages"`
}

// StartCrawl handles crawl requests. The crawl runs synchronously and the
// response carries per-ASIN run statistics.
func (h *Handlers) StartCrawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.ASINs) == 0 {
		h.respondError(w, http.StatusBadRequest, "at least one asin is required")
		return
	}
	for _, asin := range req.ASINs {
		if !crawler.ValidASIN(asin) {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid asin: %s", asin))
			return
		}
	}

	stats := h.batcher.CrawlBatch(r.Context(), req.ASINs, req.MaxPages)
	h.respondJSON(w, http.StatusOK, stats)
}

// GetReviews handles review retrieval for a single product
func (h *Handlers) GetReviews(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")
	if !crawler.ValidASIN(asin) {
		h.respondError(w, http.StatusBadRequest, "invalid asin")
		return
	}

	reviews, err := h.reviews.GetByASIN(r.Context(), asin)
	if err != nil {
		h.logger.Error("failed to get reviews", "error", err, "asin", asin)
		h.respondError(w, http.StatusInternalServerError, "failed to get reviews")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"asin":    asin,
		"count":   len(reviews),
		"reviews": reviews,
	})
}

// DeleteReviews removes all stored reviews for a product
func (h *Handlers) DeleteReviews(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")
	if !crawler.ValidASIN(asin) {
		h.respondError(w, http.StatusBadRequest, "invalid asin")
		return
	}

	deleted, err := h.reviews.DeleteByASIN(r.Context(), asin)
	if err != nil {
		h.logger.Error("failed to delete reviews", "error", err, "asin", asin)
		h.respondError(w, http.StatusInternalServerError, "failed to delete reviews")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"asin": asin, "deleted": deleted})
}

// ExportReviews streams stored reviews in csv or ndjson. An asin query
// parameter narrows the export to one product.
func (h *Handlers) ExportReviews(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var reviews []*models.Review
	if asin := r.URL.Query().Get("asin"); asin != "" {
		if !crawler.ValidASIN(asin) {
			h.respondError(w, http.StatusBadRequest, "invalid asin")
			return
		}
		reviews, err = h.reviews.GetByASIN(r.Context(), asin)
	} else {
		reviews, err = h.reviews.GetAll(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to load reviews for export", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}

	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="reviews.csv"`)
	case export.FormatNDJSON:
		w.Header().Set("Content-Type", "application/x-ndjson")
	}

	if err := export.Write(w, format, reviews); err != nil {
		h.logger.Error("failed to write export", "error", err)
	}
}

// Dedupe runs the content-key maintenance pass over the whole store
func (h *Handlers) Dedupe(w http.ResponseWriter, r *http.Request) {
	removed, err := h.reviews.DedupeByContent(r.Context())
	if err != nil {
		h.logger.Error("failed to dedupe reviews", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to dedupe reviews")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// GetStats returns the stored review count for a product
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")
	if !crawler.ValidASIN(asin) {
		h.respondError(w, http.StatusBadRequest, "invalid asin")
		return
	}

	count, err := h.reviews.CountByASIN(r.Context(), asin)
	if err != nil {
		h.logger.Error("failed to count reviews", "error", err, "asin", asin)
		h.respondError(w, http.StatusInternalServerError, "failed to count reviews")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"asin": asin, "stored": count})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
