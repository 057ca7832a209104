// Package identity assigns each review its stable unique identifier.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"

	"github.com/maltedev/amazon-review-scraper/internal/models"
	"github.com/maltedev/amazon-review-scraper/internal/normalize"
)

// GeneratedPrefix marks review IDs derived from a content hash rather than
// extracted from the site.
const GeneratedPrefix = "generated_"

// Amazon review IDs are uppercase alphanumeric tokens starting with R,
// e.g. R3GW3PF9X2M1QN, found in the DOM id or a review permalink. The
// permalink path is /gp/customer-reviews/R… on current markup; the bare
// /reviews/R… form still appears on older pages.
var (
	nativeIDPattern = regexp.MustCompile(`^R[A-Z0-9]+$`)
	reviewURLRe     = regexp.MustCompile(`/(?:customer-)?reviews/(R[A-Z0-9]+)`)
)

// Resolve computes the review ID for a raw record. A site-native ID is used
// verbatim; otherwise a deterministic SHA-1 over the cleaned title and body
// is generated. The hash is stable across runs for unchanged content because
// it is computed on whitespace-normalized text. An empty result means the
// block carried neither an ID nor any content and should be dropped.
func Resolve(raw models.RawReview) string {
	if nativeIDPattern.MatchString(raw.NativeID) {
		return raw.NativeID
	}
	if m := reviewURLRe.FindStringSubmatch(raw.NativeID); m != nil {
		return m[1]
	}

	title := normalize.CleanText(raw.Title)
	body := normalize.CleanText(raw.Body)
	if title == "" && body == "" {
		return ""
	}

	sum := sha1.Sum([]byte(title + "\n" + body))
	return GeneratedPrefix + hex.EncodeToString(sum[:])
}

// FromURL extracts a native review ID from a review permalink, if present.
func FromURL(url string) string {
	if m := reviewURLRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}
