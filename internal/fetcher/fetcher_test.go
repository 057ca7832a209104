package fetcher

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationRoundRobin(t *testing.T) {
	r := NewRotation([]string{"a", "b", "c"})

	got := []string{r.Next(), r.Next(), r.Next(), r.Next(), r.Next()}
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, got)
}

func TestRotationEmpty(t *testing.T) {
	r := NewRotation(nil)

	assert.Empty(t, r.Next())
	assert.Zero(t, r.Len())
}

func TestNewUserAgentRotationFallsBackToDefaults(t *testing.T) {
	r := NewUserAgentRotation(nil)

	require.Positive(t, r.Len())
	assert.Contains(t, r.Next(), "Mozilla/5.0")
}

func TestDefaultBlockedClassifier(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		blocked bool
	}{
		{name: "French captcha prompt", html: "<p>Saisissez les caractères que vous voyez</p>", blocked: true},
		{name: "English captcha form", html: `<form action="/errors/validateCaptcha"><h4>Enter the characters you see</h4></form>`, blocked: true},
		{name: "Robot verification", html: "<h1>Robot Verification</h1>", blocked: true},
		{name: "Normal listing", html: `<div data-hook="review">contenu</div>`, blocked: false},
		{name: "Empty", html: "", blocked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blocked, DefaultBlockedClassifier(tt.html))
		})
	}
}

func TestIsErrorPage(t *testing.T) {
	assert.True(t, IsErrorPage("<h1>Page non trouvée</h1>"))
	assert.True(t, IsErrorPage("the Dogs of Amazon page"))
	assert.True(t, IsErrorPage(""))
	assert.False(t, IsErrorPage("<div>avis clients</div>"))
}

func TestIsLoginPage(t *testing.T) {
	assert.True(t, IsLoginPage(`<form method="post" action="/ap/signin">...</form>`))
	assert.True(t, IsLoginPage(`<div id="authportal-main-section">...</div>`))
	// sign-in nav links on regular pages must not trip the detector
	assert.False(t, IsLoginPage(`<a href="/ap/signin?openid=1">Identifiez-vous</a> <div>avis clients</div>`))
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := fmt.Errorf("page 2: %w", &FetchError{Kind: KindNetwork, URL: "https://example.test", Err: cause})

	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.True(t, errors.Is(err, cause))
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Kind: KindBlocked, URL: "https://example.test/p1"}
	assert.Contains(t, err.Error(), "blocked")
	assert.Contains(t, err.Error(), "https://example.test/p1")
}
