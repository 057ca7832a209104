package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatNDJSON Format = "ndjson"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatNDJSON:
		return FormatNDJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or ndjson)", s)
	}
}

// Write encodes reviews to w in the given format.
func Write(w io.Writer, format Format, reviews []*models.Review) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, reviews)
	case FormatNDJSON:
		return WriteNDJSON(w, reviews)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

var csvHeader = []string{
	"asin", "review_id", "title", "body", "rating", "date",
	"verified_purchase", "helpful_votes", "reviewer_name", "variant",
}

// WriteCSV writes reviews as CSV with a header row. A review without a
// rating gets an empty rating cell.
func WriteCSV(w io.Writer, reviews []*models.Review) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range reviews {
		rating := ""
		if r.Rating != nil {
			rating = strconv.FormatFloat(*r.Rating, 'f', 1, 64)
		}
		record := []string{
			r.ASIN, r.ReviewID, r.Title, r.Body, rating, r.ReviewDate,
			strconv.FormatBool(r.VerifiedPurchase),
			strconv.Itoa(r.HelpfulVotes),
			r.ReviewerName, r.Variant,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteNDJSON writes one JSON object per line.
func WriteNDJSON(w io.Writer, reviews []*models.Review) error {
	enc := json.NewEncoder(w)
	for _, r := range reviews {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode review: %w", err)
		}
	}
	return nil
}
