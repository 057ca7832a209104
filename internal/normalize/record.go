package normalize

import (
	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// Record canonicalizes a raw parsed review into the stored record shape.
// Malformed numeric or date fields degrade to absent; the record itself is
// never rejected here. The review ID is left empty for the identity
// resolver to fill in.
func Record(asin string, raw models.RawReview) models.Review {
	review := models.Review{
		ASIN:             asin,
		Title:            CleanText(raw.Title),
		Body:             CleanText(raw.Body),
		ReviewDate:       Date(raw.DateText),
		VerifiedPurchase: VerifiedPurchase(raw.VerifiedText),
		HelpfulVotes:     HelpfulVotes(raw.HelpfulText),
		ReviewerName:     CleanText(raw.ReviewerName),
		Variant:          CleanText(raw.Variant),
	}

	if rating, ok := Rating(raw.RatingText); ok {
		review.Rating = &rating
	}

	return review
}
