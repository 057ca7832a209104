// Package scraper assembles browser sessions, fetchers and rate
// limiters into per-product crawl runs.
package scraper

import (
	"context"
	"log/slog"

	"github.com/maltedev/amazon-review-scraper/internal/browser"
	"github.com/maltedev/amazon-review-scraper/internal/config"
	"github.com/maltedev/amazon-review-scraper/internal/crawler"
	"github.com/maltedev/amazon-review-scraper/internal/fetcher"
	"github.com/maltedev/amazon-review-scraper/internal/models"
	"github.com/maltedev/amazon-review-scraper/internal/parser"
	"github.com/maltedev/amazon-review-scraper/internal/ratelimit"
)

// SessionRunner builds one crawler per product run. Each run gets its
// own browser context and rate limiter, so a blocked product escalates
// and rotates without slowing its siblings. The shared rotation cursors
// keep contexts from reusing the same identity back to back.
type SessionRunner struct {
	browser    *browser.Browser
	userAgents *fetcher.Rotation
	proxies    *fetcher.Rotation
	engine     *crawler.MergeEngine
	cfg        *config.Config
	logger     *slog.Logger
}

func NewSessionRunner(b *browser.Browser, engine *crawler.MergeEngine, cfg *config.Config, logger *slog.Logger) *SessionRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRunner{
		browser:    b,
		userAgents: fetcher.NewUserAgentRotation(cfg.Scraper.UserAgents),
		proxies:    fetcher.NewProxyRotation(cfg.Scraper.Proxies),
		engine:     engine,
		cfg:        cfg,
		logger:     logger,
	}
}

func (r *SessionRunner) CrawlASIN(ctx context.Context, asin string, maxPages int) *models.RunStats {
	pf := fetcher.NewPageFetcher(r.browser, r.userAgents, r.proxies, nil)
	defer pf.Close()

	limiter := ratelimit.NewEscalatingRateLimiter(r.cfg.Scraper.RateLimitMin, r.cfg.Scraper.RateLimitMax)

	c := crawler.New(pf, parser.NewAmazonParser(), r.engine, limiter, crawler.Options{
		Domain:   r.cfg.Scraper.Domain,
		Sort:     r.cfg.Scraper.SortOrder,
		MaxPages: r.cfg.Scraper.MaxPagesPerProduct,
		Retry: crawler.RetryPolicy{
			MaxAttempts: r.cfg.Scraper.MaxRetries,
			BaseDelay:   r.cfg.Scraper.RetryDelay,
			Multiplier:  2.0,
			MaxDelay:    r.cfg.Scraper.RateLimitMax * 4,
		},
	}, r.logger)

	return c.CrawlASIN(ctx, asin, maxPages)
}
