package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/amazon-review-scraper/internal/browser"
)

// PageFetcher loads review pages through a playwright browser context.
// Each PageFetcher owns one context; user agent and proxy are picked from
// the rotation cursors when the context is (re)created, so a rotation
// happens on every Rotate call, independent per fetcher.
type PageFetcher struct {
	browser    *browser.Browser
	userAgents *Rotation
	proxies    *Rotation
	classifier BlockedClassifier
	logger     *slog.Logger

	page playwright.Page
}

func NewPageFetcher(b *browser.Browser, userAgents, proxies *Rotation, classifier BlockedClassifier) *PageFetcher {
	if classifier == nil {
		classifier = DefaultBlockedClassifier
	}
	return &PageFetcher{
		browser:    b,
		userAgents: userAgents,
		proxies:    proxies,
		classifier: classifier,
		logger:     slog.Default().With("component", "fetcher"),
	}
}

// FetchPage navigates to url and returns the rendered HTML. Failures come
// back as *FetchError with the kind the crawler keys its retry policy on.
func (f *PageFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	page, err := f.currentPage()
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}

	timeout := float64(f.browser.Timeout().Milliseconds())
	if deadline, ok := ctx.Deadline(); ok {
		// context deadline wins when tighter than the configured timeout
		if remaining := float64(deadlineMs(deadline)); remaining < timeout {
			timeout = remaining
		}
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeout),
	})
	if err != nil {
		return "", &FetchError{Kind: classifyNavError(err), URL: url, Err: err}
	}

	if dismissed, derr := f.browser.DismissInterstitial(page); dismissed {
		if derr != nil {
			return "", &FetchError{Kind: KindBlocked, URL: url, Err: derr}
		}
	}

	f.browser.Humanize(page)

	html, err := page.Content()
	if err != nil {
		return "", &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}

	if f.classifier(html) {
		f.logger.Warn("anti-bot signature detected", "url", url)
		return "", &FetchError{Kind: KindBlocked, URL: url}
	}
	if IsLoginPage(html) {
		// sign-in redirect means this context's identity is burned
		f.logger.Warn("redirected to sign-in", "url", url)
		return "", &FetchError{Kind: KindBlocked, URL: url, Err: fmt.Errorf("sign-in redirect")}
	}
	if IsErrorPage(html) {
		return "", &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("site error page")}
	}

	return html, nil
}

// Rotate tears down the current context so the next fetch starts a fresh
// one with the next user agent and proxy from the pools. Called by the
// crawler after a blocked response.
func (f *PageFetcher) Rotate() {
	if f.page != nil {
		f.page.Context().Close()
		f.page = nil
	}
}

func (f *PageFetcher) Close() error {
	f.Rotate()
	return nil
}

func (f *PageFetcher) currentPage() (playwright.Page, error) {
	if f.page != nil && !f.page.IsClosed() {
		return f.page, nil
	}

	opts := browser.ContextOptions{
		UserAgent:   f.userAgents.Next(),
		ProxyServer: f.proxies.Next(),
	}
	page, err := f.browser.NewPage(opts)
	if err != nil {
		return nil, err
	}
	f.page = page
	return page, nil
}

func deadlineMs(deadline time.Time) int64 {
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining.Milliseconds()
}

func classifyNavError(err error) ErrorKind {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return KindTimeout
	}
	return KindNetwork
}
