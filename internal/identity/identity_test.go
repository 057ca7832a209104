package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/amazon-review-scraper/internal/models"
)

func TestResolveNativeID(t *testing.T) {
	raw := models.RawReview{
		NativeID: "R3GW3PF9X2M1QN",
		Title:    "Bon produit",
		Body:     "RAS",
	}

	assert.Equal(t, "R3GW3PF9X2M1QN", Resolve(raw))
}

func TestResolveNativeIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "customer-reviews permalink", url: "https://www.amazon.fr/gp/customer-reviews/R1ABCDEF234567"},
		{name: "legacy reviews path", url: "https://www.amazon.fr/reviews/R1ABCDEF234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := models.RawReview{NativeID: tt.url, Title: "Bon produit"}
			assert.Equal(t, "R1ABCDEF234567", Resolve(raw))
		})
	}
}

func TestResolveHashFallback(t *testing.T) {
	raw := models.RawReview{
		Title: "Très bon produit",
		Body:  "Je recommande.",
	}

	id := Resolve(raw)
	assert.True(t, strings.HasPrefix(id, GeneratedPrefix))
	// SHA-1 rendered as 40 hex chars
	assert.Len(t, id, len(GeneratedPrefix)+40)
}

func TestResolveDeterministic(t *testing.T) {
	raw := models.RawReview{
		Title: "Très bon produit",
		Body:  "Je recommande.",
	}

	assert.Equal(t, Resolve(raw), Resolve(raw))
}

func TestResolveWhitespaceInsensitive(t *testing.T) {
	a := models.RawReview{Title: "Très  bon \n produit", Body: " Je recommande. "}
	b := models.RawReview{Title: "Très bon produit", Body: "Je recommande."}

	assert.Equal(t, Resolve(a), Resolve(b))
}

func TestResolveContentChangesID(t *testing.T) {
	a := models.RawReview{Title: "Très bon produit", Body: "Je recommande."}
	b := models.RawReview{Title: "Très bon produit", Body: "Je déconseille."}

	assert.NotEqual(t, Resolve(a), Resolve(b))
}

func TestResolveEmptyBlock(t *testing.T) {
	assert.Empty(t, Resolve(models.RawReview{}))
}

func TestResolveLowercaseTokenNotNative(t *testing.T) {
	raw := models.RawReview{NativeID: "r123abc", Title: "Titre"}

	id := Resolve(raw)
	assert.True(t, strings.HasPrefix(id, GeneratedPrefix))
}

func TestFromURL(t *testing.T) {
	assert.Equal(t, "R2XYZ789ABC", FromURL("/gp/customer-reviews/R2XYZ789ABC/ref=foo"))
	assert.Equal(t, "R2XYZ789ABC", FromURL("/reviews/R2XYZ789ABC"))
	assert.Empty(t, FromURL("/dp/B08TEST123"))
}
