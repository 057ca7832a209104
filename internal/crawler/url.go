package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const defaultDomain = "www.amazon.fr"

var asinPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// ValidASIN reports whether s looks like an Amazon catalog identifier:
// exactly ten uppercase alphanumeric characters.
func ValidASIN(s string) bool {
	return asinPattern.MatchString(s)
}

// ReviewPageURL builds the review-listing URL for an ASIN. Page numbers
// start at 1; the pageNumber parameter is only added past the first page.
// This constructed URL is also the fallback when a listing page carries no
// usable "next" link.
func ReviewPageURL(domain, asin string, page int, sort string) string {
	if domain == "" {
		domain = defaultDomain
	}
	if sort == "" {
		sort = "recent"
	}

	params := url.Values{}
	params.Set("reviewerType", "all_reviews")
	params.Set("sortBy", sort)
	params.Set("filterByStar", "all_stars")
	if page > 1 {
		params.Set("pageNumber", fmt.Sprintf("%d", page))
	}

	return fmt.Sprintf("https://%s/product-reviews/%s/?%s", domain, asin, params.Encode())
}

// ResolveNextURL turns the href discovered on a listing page into an
// absolute URL on the same domain.
func ResolveNextURL(domain, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if domain == "" {
		domain = defaultDomain
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return "https://" + domain + href
}
