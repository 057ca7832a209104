package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewBlock(id, title, body string) string {
	return fmt.Sprintf(`
	<div id="%s" data-hook="review" class="a-section review aok-relative">
		<span class="a-profile-name">Marie D.</span>
		<a data-hook="review-title" href="/gp/customer-reviews/%s"><span>%s</span></a>
		<i data-hook="review-star-rating"><span class="a-icon-alt">4,0 sur 5 étoiles</span></i>
		<span data-hook="review-date">Commenté en France le 15 janvier 2024</span>
		<span data-hook="format-strip">Taille: M</span>
		<span data-hook="avp-badge">Achat vérifié</span>
		<span data-hook="review-body"><span>%s</span></span>
		<span data-hook="helpful-vote-statement">3 personnes ont trouvé cela utile</span>
	</div>`, id, id, title, body)
}

func listingPage(withNext bool, blocks ...string) string {
	next := `<ul class="a-pagination"><li class="a-last a-disabled">Suivant</li></ul>`
	if withNext {
		next = `<ul class="a-pagination"><li class="a-last"><a href="/product-reviews/B08TEST123/?pageNumber=2">Suivant</a></li></ul>`
	}
	var sb string
	for _, b := range blocks {
		sb += b
	}
	return fmt.Sprintf(`<html><body><div id="cm_cr-review_list">%s</div>%s</body></html>`, sb, next)
}

func TestParseReviews(t *testing.T) {
	p := NewAmazonParser()

	html := listingPage(true,
		reviewBlock("R1AAAAAAAAAAAA", "Très bon produit", "Je recommande."),
		reviewBlock("R2BBBBBBBBBBBB", "Déçu", "Pas conforme à la description."),
	)

	reviews, err := p.ParseReviews(html)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	first := reviews[0]
	assert.Equal(t, "R1AAAAAAAAAAAA", first.NativeID)
	assert.Equal(t, "Très bon produit", first.Title)
	assert.Equal(t, "Je recommande.", first.Body)
	assert.Equal(t, "4,0 sur 5 étoiles", first.RatingText)
	assert.Contains(t, first.DateText, "15 janvier 2024")
	assert.Equal(t, "Achat vérifié", first.VerifiedText)
	assert.Equal(t, "3 personnes ont trouvé cela utile", first.HelpfulText)
	assert.Equal(t, "Marie D.", first.ReviewerName)
	assert.Equal(t, "Taille: M", first.Variant)

	// document order is preserved
	assert.Equal(t, "R2BBBBBBBBBBBB", reviews[1].NativeID)
}

func TestParseReviewsEmptyPage(t *testing.T) {
	p := NewAmazonParser()

	reviews, err := p.ParseReviews(`<html><body><div id="cm_cr-review_list"></div></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestParseReviewsFallbackSelector(t *testing.T) {
	p := NewAmazonParser()

	html := `<html><body>
		<div id="customer_review-R3CCCCCCCCCCCC">
			<span data-hook="review-title">Sans data-hook review</span>
			<span data-hook="review-body">Bloc avec sélecteur alternatif.</span>
		</div>
	</body></html>`

	reviews, err := p.ParseReviews(html)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Sans data-hook review", reviews[0].Title)
}

func TestExtractNativeIDFromInnerContainer(t *testing.T) {
	p := NewAmazonParser()

	html := `<html><body>
		<div data-hook="review">
			<div id="customer_review-R4DDDDDDDDDDDD">
				<span data-hook="review-body">Contenu</span>
			</div>
		</div>
	</body></html>`

	reviews, err := p.ParseReviews(html)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "R4DDDDDDDDDDDD", reviews[0].NativeID)
}

func TestExtractNativeIDFromPermalink(t *testing.T) {
	p := NewAmazonParser()

	html := `<html><body>
		<div data-hook="review">
			<a data-hook="review-title" href="/gp/customer-reviews/R5EEEEEEEEEEEE/ref=cm_cr"><span>Titre</span></a>
			<span data-hook="review-body">Contenu</span>
		</div>
	</body></html>`

	reviews, err := p.ParseReviews(html)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	// the permalink href is handed through for the identity resolver
	assert.Contains(t, reviews[0].NativeID, "/gp/customer-reviews/R5EEEEEEEEEEEE")
}

func TestNextPageURL(t *testing.T) {
	p := NewAmazonParser()

	url, ok := p.NextPageURL(listingPage(true, reviewBlock("R1AAAAAAAAAAAA", "t", "b")))
	require.True(t, ok)
	assert.Equal(t, "/product-reviews/B08TEST123/?pageNumber=2", url)
}

func TestNextPageURLDisabled(t *testing.T) {
	p := NewAmazonParser()

	_, ok := p.NextPageURL(listingPage(false, reviewBlock("R1AAAAAAAAAAAA", "t", "b")))
	assert.False(t, ok)
}

func TestNextPageURLAbsent(t *testing.T) {
	p := NewAmazonParser()

	_, ok := p.NextPageURL(`<html><body>no pagination here</body></html>`)
	assert.False(t, ok)
}
