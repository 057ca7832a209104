package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rating texts arrive in several shapes depending on locale and layout:
// "4,0 sur 5 étoiles", "4.5 out of 5 stars", "4,5" or a bare "4".
var ratingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d)[.,](\d)\s*(?:sur|out of|von)\s*5`),
	regexp.MustCompile(`(\d)[.,](\d)`),
	regexp.MustCompile(`(\d)\s*(?:sur|out of|von)\s*5`),
	regexp.MustCompile(`(\d)`),
}

// Rating parses a star-rating text into a float clamped to [1.0, 5.0].
// The second return value is false when no known pattern matches; an
// unparseable rating is not a reason to reject the record.
func Rating(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	for _, pattern := range ratingPatterns {
		matches := pattern.FindStringSubmatch(text)
		if matches == nil {
			continue
		}

		var rating float64
		if len(matches) == 3 {
			rating, _ = strconv.ParseFloat(matches[1]+"."+matches[2], 64)
		} else {
			rating, _ = strconv.ParseFloat(matches[1], 64)
		}

		if rating < 1.0 {
			rating = 1.0
		}
		if rating > 5.0 {
			rating = 5.0
		}
		return rating, true
	}

	return 0, false
}

var frenchMonths = map[string]string{
	"janvier": "01", "février": "02", "fevrier": "02", "mars": "03",
	"avril": "04", "mai": "05", "juin": "06", "juillet": "07",
	"août": "08", "aout": "08", "septembre": "09", "octobre": "10",
	"novembre": "11", "décembre": "12", "decembre": "12",
}

var (
	dateTextualPattern = regexp.MustCompile(`(?:le\s+)?(\d{1,2})\s+([\p{L}]+)\s+(\d{4})`)
	dateSlashPattern   = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	dateISOPattern     = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
)

// Date parses a review date ("Commenté en France le 15 janvier 2024",
// "15/01/2024", "2024-01-15") into YYYY-MM-DD. Candidates are tried in
// order; no match yields empty rather than a fabricated date.
func Date(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)

	if m := dateTextualPattern.FindStringSubmatch(lower); m != nil {
		if month, ok := frenchMonths[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			return fmt.Sprintf("%s-%s-%02d", m[3], month, day)
		}
	}
	if m := dateSlashPattern.FindStringSubmatch(lower); m != nil {
		// DD/MM/YYYY
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	}
	if m := dateISOPattern.FindStringSubmatch(lower); m != nil {
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
	}

	return ""
}

var helpfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s+personnes?\s+ont\s+trouvé`),
	regexp.MustCompile(`(\d+)\s+people\s+found`),
	regexp.MustCompile(`(\d+)\s+utile`),
	regexp.MustCompile(`une personne a trouvé`),
	regexp.MustCompile(`one person found`),
	regexp.MustCompile(`(\d+)`),
}

// HelpfulVotes parses a helpful-vote statement into a non-negative count.
func HelpfulVotes(text string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)

	for _, pattern := range helpfulPatterns {
		matches := pattern.FindStringSubmatch(lower)
		if matches == nil {
			continue
		}
		if len(matches) == 1 {
			// "une personne" / "one person" variants carry no digit
			return 1
		}
		if n, err := strconv.Atoi(matches[1]); err == nil && n >= 0 {
			return n
		}
	}

	return 0
}

var verifiedIndicators = []string{
	"achat vérifié",
	"achat verifie",
	"verified purchase",
	"vérifié",
	"verified",
}

// VerifiedPurchase reports whether a badge text marks a verified purchase.
func VerifiedPurchase(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, indicator := range verifiedIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	controlRe    = regexp.MustCompile("[\x00-\x1f\x7f]")
)

// CleanText collapses whitespace and strips control characters. Empty or
// whitespace-only input normalizes to the empty string, never to " ".
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = controlRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.TrimSpace(text)
}
