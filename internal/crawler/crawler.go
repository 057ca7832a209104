// Package crawler drives review pagination, merging and batch execution.
package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/amazon-review-scraper/internal/fetcher"
	"github.com/maltedev/amazon-review-scraper/internal/identity"
	"github.com/maltedev/amazon-review-scraper/internal/models"
	"github.com/maltedev/amazon-review-scraper/internal/normalize"
	"github.com/maltedev/amazon-review-scraper/internal/parser"
	"github.com/maltedev/amazon-review-scraper/internal/ratelimit"
)

// blockedRecorder is implemented by rate limiters that escalate on
// anti-bot detection.
type blockedRecorder interface {
	RecordBlocked()
	RecordSuccess()
}

// rotator is implemented by fetchers that can swap proxy/user-agent.
type rotator interface {
	Rotate()
}

type Options struct {
	Domain   string
	Sort     string
	MaxPages int
	Retry    RetryPolicy
}

// Crawler paginates one product's review listing: fetch, parse, normalize,
// merge, decide. A single crawler processes pages strictly in order; "next
// page" discovery depends on having parsed the previous page.
type Crawler struct {
	fetcher fetcher.Fetcher
	parser  parser.Parser
	merge   *MergeEngine
	limiter ratelimit.RateLimiter
	opts    Options
	logger  *slog.Logger
}

func New(f fetcher.Fetcher, p parser.Parser, merge *MergeEngine, limiter ratelimit.RateLimiter, opts Options, logger *slog.Logger) *Crawler {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 5
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		fetcher: f,
		parser:  p,
		merge:   merge,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With("component", "crawler"),
	}
}

// CrawlASIN runs the pagination loop for one ASIN and always returns run
// stats, even on total failure. maxPages <= 0 falls back to the configured
// default.
func (c *Crawler) CrawlASIN(ctx context.Context, asin string, maxPages int) *models.RunStats {
	if maxPages <= 0 {
		maxPages = c.opts.MaxPages
	}

	stats := models.NewRunStats(asin)
	defer func() { stats.FinishedAt = time.Now() }()

	log := c.logger.With("asin", asin)
	log.Info("starting review crawl", "max_pages", maxPages)

	pageURL := ReviewPageURL(c.opts.Domain, asin, 1, c.opts.Sort)

	for page := 1; page <= maxPages; page++ {
		startedAt := time.Now()

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				c.finishInterrupted(stats, page, err)
				return stats
			}
		}

		html, err := c.fetchWithRetry(ctx, pageURL, page, stats)
		if err != nil {
			// retries exhausted; stop pagination with what we have
			stats.PagesVisited = page
			stats.Pages = append(stats.Pages, models.PageDetail{
				Page: page, Duration: time.Since(startedAt), Error: err.Error(),
			})
			c.finish(stats)
			return stats
		}
		stats.PagesVisited = page

		raws, perr := c.parser.ParseReviews(html)
		if perr != nil {
			log.Error("page parse failed", "page", page, "error", perr)
			stats.RecordError(page, models.ErrorParseMalformed, perr.Error())
			stats.Pages = append(stats.Pages, models.PageDetail{
				Page: page, Duration: time.Since(startedAt), Error: perr.Error(),
			})
			if page == 1 {
				c.finish(stats)
				return stats
			}
			// skip the page and keep going on the constructed URL
			pageURL = ReviewPageURL(c.opts.Domain, asin, page+1, c.opts.Sort)
			continue
		}

		if len(raws) == 0 {
			// no reviews on the page: normal end of pagination
			log.Info("empty page, stopping pagination", "page", page)
			stats.PagesSucceeded++
			stats.Pages = append(stats.Pages, models.PageDetail{
				Page: page, Duration: time.Since(startedAt),
			})
			c.finish(stats)
			return stats
		}

		records := buildRecords(asin, raws)
		result, merr := c.merge.MergePage(ctx, records)

		stats.ItemsSeen += result.Seen
		stats.ItemsInserted += result.Inserted
		stats.ItemsDuplicate += result.Duplicates()

		if merr != nil {
			// storage trouble is fatal for this product
			log.Error("merge failed", "page", page, "error", merr)
			stats.RecordError(page, models.ErrorStorage, merr.Error())
			stats.Status = models.RunFailed
			stats.FinishedAt = time.Now()
			return stats
		}

		stats.PagesSucceeded++

		nextHref, hasNext := c.parser.NextPageURL(html)
		detail := models.PageDetail{
			Page:      page,
			Parsed:    result.Seen,
			Inserted:  result.Inserted,
			Duplicate: result.Duplicates(),
			Next:      hasNext,
			Duration:  time.Since(startedAt),
		}
		stats.Pages = append(stats.Pages, detail)

		log.Info("page merged",
			"page", page,
			"parsed", result.Seen,
			"inserted", result.Inserted,
			"duplicate", result.Duplicates())

		if hasNext {
			pageURL = ResolveNextURL(c.opts.Domain, nextHref)
		} else {
			// no usable next link; try the constructed URL, the empty
			// page it eventually returns terminates the loop
			pageURL = ReviewPageURL(c.opts.Domain, asin, page+1, c.opts.Sort)
		}
	}

	c.finish(stats)
	return stats
}

// fetchWithRetry applies the bounded retry policy to one page fetch.
// Blocked responses escalate the rate limiter and rotate the fetch
// identity before the next attempt.
func (c *Crawler) fetchWithRetry(ctx context.Context, url string, page int, stats *models.RunStats) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.opts.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.opts.Retry.Sleep(ctx, attempt-1); err != nil {
				stats.RecordError(page, models.ErrorFetchNetwork, err.Error())
				return "", err
			}
		}

		html, err := c.fetcher.FetchPage(ctx, url)
		if err == nil {
			if rec, ok := c.limiter.(blockedRecorder); ok {
				rec.RecordSuccess()
			}
			return html, nil
		}
		lastErr = err

		fe, ok := fetcher.AsFetchError(err)
		if !ok {
			// context cancellation or other unclassified failure; still
			// counts as a failed page so the run status reflects it
			stats.RecordError(page, models.ErrorFetchNetwork, err.Error())
			return "", err
		}

		stats.RecordError(page, errorCategory(fe.Kind), fe.Error())
		c.logger.Warn("page fetch failed",
			"url", url, "kind", fe.Kind, "attempt", attempt)

		if fe.Kind == fetcher.KindBlocked {
			if rec, ok := c.limiter.(blockedRecorder); ok {
				rec.RecordBlocked()
			}
			if rot, ok := c.fetcher.(rotator); ok {
				rot.Rotate()
			}
		}
	}

	return "", lastErr
}

func (c *Crawler) finish(stats *models.RunStats) {
	switch {
	case stats.PagesSucceeded == 0:
		stats.Status = models.RunFailed
	case len(stats.Errors) > 0:
		stats.Status = models.RunCompletedWithErrors
	default:
		stats.Status = models.RunCompleted
	}
}

func (c *Crawler) finishInterrupted(stats *models.RunStats, page int, err error) {
	stats.RecordError(page, models.ErrorFetchNetwork, err.Error())
	c.finish(stats)
}

func errorCategory(kind fetcher.ErrorKind) models.ErrorCategory {
	switch kind {
	case fetcher.KindTimeout:
		return models.ErrorFetchTimeout
	case fetcher.KindBlocked:
		return models.ErrorFetchBlocked
	default:
		return models.ErrorFetchNetwork
	}
}

// buildRecords normalizes raw reviews and assigns their identity, dropping
// blocks that carry neither an ID nor any content.
func buildRecords(asin string, raws []models.RawReview) []models.Review {
	records := make([]models.Review, 0, len(raws))
	for _, raw := range raws {
		id := identity.Resolve(raw)
		if id == "" {
			continue
		}
		record := normalize.Record(asin, raw)
		record.ReviewID = id
		records = append(records, record)
	}
	return records
}
