package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidASIN(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "standard asin", input: "B0CX23V2ZK", want: true},
		{name: "all digits", input: "0123456789", want: true},
		{name: "too short", input: "B0CX23V2Z", want: false},
		{name: "too long", input: "B0CX23V2ZKX", want: false},
		{name: "lowercase rejected", input: "b0cx23v2zk", want: false},
		{name: "empty rejected", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidASIN(tt.input))
		})
	}
}

func TestReviewPageURL(t *testing.T) {
	first := ReviewPageURL("www.amazon.fr", "B0CX23V2ZK", 1, "recent")
	assert.Contains(t, first, "https://www.amazon.fr/product-reviews/B0CX23V2ZK/")
	assert.Contains(t, first, "reviewerType=all_reviews")
	assert.Contains(t, first, "sortBy=recent")
	assert.Contains(t, first, "filterByStar=all_stars")
	assert.NotContains(t, first, "pageNumber")

	third := ReviewPageURL("", "B0CX23V2ZK", 3, "")
	assert.Contains(t, third, "www.amazon.fr")
	assert.Contains(t, third, "pageNumber=3")
	assert.Contains(t, third, "sortBy=recent")
}

func TestResolveNextURL(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		href   string
		want   string
	}{
		{
			name:   "relative href",
			domain: "www.amazon.fr",
			href:   "/product-reviews/B0CX23V2ZK/?pageNumber=2",
			want:   "https://www.amazon.fr/product-reviews/B0CX23V2ZK/?pageNumber=2",
		},
		{
			name:   "absolute href unchanged",
			domain: "www.amazon.fr",
			href:   "https://www.amazon.fr/x",
			want:   "https://www.amazon.fr/x",
		},
		{
			name:   "missing leading slash",
			domain: "www.amazon.fr",
			href:   "product-reviews/B0CX23V2ZK/",
			want:   "https://www.amazon.fr/product-reviews/B0CX23V2ZK/",
		},
		{name: "empty href", domain: "www.amazon.fr", href: "", want: ""},
		{
			name: "empty domain falls back",
			href: "/p2",
			want: "https://www.amazon.fr/p2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveNextURL(tt.domain, tt.href))
		})
	}
}
