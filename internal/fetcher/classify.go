package fetcher

import (
	"strings"
)

// BlockedClassifier decides whether a rendered page is an anti-bot
// interstitial. The detection heuristics are deliberately pluggable: the
// crawl state machine only ever sees the boolean.
type BlockedClassifier func(html string) bool

var captchaIndicators = []string{
	"captcha",
	"enter the characters you see",
	"saisissez les caractères que vous voyez",
	"robot verification",
	"vérification robot",
	"security check",
	"vérification de sécurité",
	"unusual traffic",
	"trafic inhabituel",
}

// DefaultBlockedClassifier matches the CAPTCHA and interstitial signatures
// Amazon serves on the French and English storefronts.
func DefaultBlockedClassifier(html string) bool {
	if html == "" {
		return false
	}
	lower := strings.ToLower(html)
	for _, indicator := range captchaIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

var errorIndicators = []string{
	"page not found",
	"page non trouvée",
	"product not available",
	"produit non disponible",
	"dogs of amazon",
	"sorry! something went wrong",
	"désolé! quelque chose s'est mal passé",
}

// IsErrorPage reports whether the page is a site error page. An empty
// document counts as an error.
func IsErrorPage(html string) bool {
	if html == "" {
		return true
	}
	lower := strings.ToLower(html)
	for _, indicator := range errorIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// Indicators restricted to the portal page itself; regular pages carry
// sign-in links and an "Identifiez-vous" nav entry, so those strings
// cannot be used.
var loginIndicators = []string{
	"authportal-main-section",
	"authportal-center-section",
	`action="/ap/signin"`,
	"<title>connexion amazon</title>",
	"<title>amazon sign-in</title>",
}

// IsLoginPage reports whether the site redirected to its sign-in portal.
func IsLoginPage(html string) bool {
	if html == "" {
		return false
	}
	lower := strings.ToLower(html)
	for _, indicator := range loginIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
