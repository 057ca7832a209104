package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// Review listing selectors. Amazon varies the markup between layouts, so
// block selectors are tried in order until one matches.
var reviewBlockSelectors = []string{
	`[data-hook="review"]`,
	`#cm_cr-review_list [data-hook="review"]`,
	`[id^="customer_review-"]`,
	`div.a-section.review.aok-relative`,
}

const (
	titleSelector    = `[data-hook="review-title"]`
	bodySelector     = `[data-hook="review-body"]`
	ratingSelector   = `[data-hook="review-star-rating"], [data-hook="cmps-review-star-rating"]`
	dateSelector     = `[data-hook="review-date"]`
	verifiedSelector = `[data-hook="avp-badge"]`
	helpfulSelector  = `[data-hook="helpful-vote-statement"]`
	reviewerSelector = `.a-profile-name`
	variantSelector  = `[data-hook="format-strip"]`

	nextLinkSelector     = `ul.a-pagination li.a-last a`
	nextDisabledSelector = `ul.a-pagination li.a-last.a-disabled`
)

type AmazonParser struct{}

func NewAmazonParser() *AmazonParser {
	return &AmazonParser{}
}

// ParseReviews extracts all review blocks from a rendered listing page.
// A page without any review block yields an empty slice, not an error;
// the caller treats that as end of pagination.
func (p *AmazonParser) ParseReviews(html string) ([]models.RawReview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var blocks *goquery.Selection
	for _, selector := range reviewBlockSelectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			blocks = sel
			break
		}
	}
	if blocks == nil {
		return nil, nil
	}

	var reviews []models.RawReview
	blocks.Each(func(_ int, block *goquery.Selection) {
		raw := p.parseBlock(block)
		if raw.NativeID == "" && raw.Title == "" && raw.Body == "" {
			return
		}
		reviews = append(reviews, raw)
	})

	return reviews, nil
}

func (p *AmazonParser) parseBlock(block *goquery.Selection) models.RawReview {
	return models.RawReview{
		NativeID:     p.extractNativeID(block),
		Title:        blockText(block, titleSelector),
		Body:         blockText(block, bodySelector),
		RatingText:   blockText(block, ratingSelector),
		DateText:     blockText(block, dateSelector),
		VerifiedText: blockText(block, verifiedSelector),
		HelpfulText:  blockText(block, helpfulSelector),
		ReviewerName: blockText(block, reviewerSelector),
		Variant:      blockText(block, variantSelector),
	}
}

// extractNativeID tries the block's own id attribute, the inner
// customer_review- container, then a review permalink.
func (p *AmazonParser) extractNativeID(block *goquery.Selection) string {
	if id, ok := block.Attr("id"); ok && strings.HasPrefix(id, "R") {
		return id
	}

	inner := block.Find(`[id^="customer_review-"]`).First()
	if id, ok := inner.Attr("id"); ok {
		if _, token, found := strings.Cut(id, "customer_review-"); found && token != "" {
			return token
		}
	}

	link := block.Find(`a[href*="customer-reviews"], a[href*="/reviews/"]`).First()
	if href, ok := link.Attr("href"); ok {
		return href
	}

	return ""
}

// NextPageURL returns the pagination "next" link. A disabled last-page
// element means there is no next page even if an anchor is present.
func (p *AmazonParser) NextPageURL(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	if doc.Find(nextDisabledSelector).Length() > 0 {
		return "", false
	}

	href, ok := doc.Find(nextLinkSelector).First().Attr("href")
	if !ok || href == "" {
		return "", false
	}
	return href, true
}

func blockText(block *goquery.Selection, selector string) string {
	return strings.TrimSpace(block.Find(selector).First().Text())
}
