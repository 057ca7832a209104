package browser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *slog.Logger
	opts    *Options
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExtraHeaders   map[string]string
}

// ContextOptions configure one browser context. User agent and proxy come
// from the rotation cursors, one pick per context.
type ContextOptions struct {
	UserAgent   string
	ProxyServer string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        45 * time.Second,
		ViewportWidth:  1280,
		ViewportHeight: 900,
		AcceptLanguage: "fr-FR,fr;q=0.9,en;q=0.8",
		TimezoneID:     "Europe/Paris",
		Locale:         "fr-FR",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":    "1",
		},
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: b,
		logger:  slog.Default().With("component", "browser"),
		opts:    opts,
	}, nil
}

// NewContext opens an isolated browsing context with its own user agent and
// optional proxy.
func (b *Browser) NewContext(ctxOpts ContextOptions) (playwright.BrowserContext, error) {
	opts := playwright.BrowserNewContextOptions{
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &b.opts.Locale,
		TimezoneId:        &b.opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
		ExtraHttpHeaders: b.opts.ExtraHeaders,
	}
	if ctxOpts.UserAgent != "" {
		opts.UserAgent = &ctxOpts.UserAgent
	}
	if ctxOpts.ProxyServer != "" {
		opts.Proxy = &playwright.Proxy{Server: ctxOpts.ProxyServer}
	}

	context, err := b.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return context, nil
}

// NewPage opens a page in a fresh context.
func (b *Browser) NewPage(ctxOpts ContextOptions) (playwright.Page, error) {
	context, err := b.NewContext(ctxOpts)
	if err != nil {
		return nil, err
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))
	return page, nil
}

func (b *Browser) Timeout() time.Duration {
	return b.opts.Timeout
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

// DismissInterstitial clicks through the "continue shopping" interstitial
// Amazon sometimes serves before a listing. Returns true when an
// interstitial was detected, whether or not the click-through succeeded.
func (b *Browser) DismissInterstitial(page playwright.Page) (bool, error) {
	content, err := page.Content()
	if err != nil {
		return false, fmt.Errorf("failed to get page content: %w", err)
	}

	if !strings.Contains(content, "Continuer les achats") &&
		!strings.Contains(content, "Continue shopping") {
		return false, nil
	}

	b.logger.Info("interstitial detected, attempting click-through")

	buttonSelectors := []string{
		`button:has-text("Continuer les achats")`,
		`button:has-text("Continue shopping")`,
		`input[type="submit"]`,
		`.a-button-primary`,
	}

	for _, selector := range buttonSelectors {
		button := page.Locator(selector).First()
		count, err := button.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := button.Click(); err != nil {
			b.logger.Warn("failed to click interstitial button", "selector", selector, "error", err)
			continue
		}
		page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State: playwright.LoadStateDomcontentloaded,
		})
		return true, nil
	}

	return true, fmt.Errorf("could not find interstitial button")
}

// Humanize adds small mouse movements and a scroll so page interactions
// look less mechanical.
func (b *Browser) Humanize(page playwright.Page) {
	viewport := page.ViewportSize()
	if viewport == nil {
		return
	}

	x := float64(viewport.Width / 2)
	y := float64(viewport.Height / 2)
	page.Mouse().Move(x, y, playwright.MouseMoveOptions{Steps: playwright.Int(10)})
	time.Sleep(120 * time.Millisecond)
	page.Mouse().Move(x+40, y+60, playwright.MouseMoveOptions{Steps: playwright.Int(5)})
	page.Evaluate(`window.scrollBy(0, Math.random() * 300)`)
}
