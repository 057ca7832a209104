package parser

import (
	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// Parser extracts raw review fields from a rendered review-listing page.
type Parser interface {
	// ParseReviews returns the page's review blocks in document order.
	// Zero results with a nil error means the page genuinely holds no
	// reviews (end of pagination).
	ParseReviews(html string) ([]models.RawReview, error)
	// NextPageURL returns the href of the pagination "next" link, when the
	// page advertises one that is not disabled.
	NextPageURL(html string) (string, bool)
}
