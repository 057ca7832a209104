package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// Runner is the per-ASIN crawl operation the coordinator fans out.
// *Crawler satisfies it.
type Runner interface {
	CrawlASIN(ctx context.Context, asin string, maxPages int) *models.RunStats
}

// RunPublisher emits an event for a finished run. The coordinator calls
// it once per ASIN, failures included, so every entrypoint that crawls
// also announces its runs. A nil publisher disables announcements.
type RunPublisher interface {
	PublishRun(ctx context.Context, run *models.RunStats) error
}

// BatchCoordinator runs crawls for many ASINs with bounded concurrency.
// Browser contexts and outbound connections are the scarce resource, so
// the cap stays small. One ASIN's failure never cancels its siblings:
// every requested ASIN gets a RunStats in the result, failures included.
type BatchCoordinator struct {
	runner      Runner
	publisher   RunPublisher
	concurrency int
	logger      *slog.Logger
}

func NewBatchCoordinator(runner Runner, publisher RunPublisher, concurrency int, logger *slog.Logger) *BatchCoordinator {
	if concurrency <= 0 {
		concurrency = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchCoordinator{
		runner:      runner,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger.With("component", "batch"),
	}
}

// CrawlBatch executes one run per ASIN and aggregates the outcomes. The
// result is keyed by ASIN; no cross-product ordering is guaranteed.
func (b *BatchCoordinator) CrawlBatch(ctx context.Context, asins []string, maxPages int) *models.BatchStats {
	stats := models.NewBatchStats()
	if len(asins) == 0 {
		return stats
	}

	b.logger.Info("starting batch", "asins", len(asins), "concurrency", b.concurrency)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, b.concurrency)
	)

	for _, asin := range asins {
		wg.Add(1)
		go func(asin string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			run := b.runOne(ctx, asin, maxPages)

			if b.publisher != nil {
				// a dropped announcement never fails the crawl itself
				if err := b.publisher.PublishRun(ctx, run); err != nil {
					b.logger.Error("failed to publish run event", "asin", asin, "error", err)
				}
			}

			mu.Lock()
			stats.Add(run)
			mu.Unlock()
		}(asin)
	}

	wg.Wait()

	b.logger.Info("batch finished",
		"inserted", stats.ItemsInserted,
		"duplicate", stats.ItemsDuplicate,
		"failed", len(stats.FailedASINs))

	return stats
}

// runOne isolates a single ASIN run; a panic inside the crawler becomes a
// failed RunStats instead of taking the batch down.
func (b *BatchCoordinator) runOne(ctx context.Context, asin string, maxPages int) (run *models.RunStats) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("crawl panicked", "asin", asin, "panic", r)
			run = models.NewRunStats(asin)
			run.Status = models.RunFailed
			run.RecordError(0, models.ErrorFetchNetwork, fmt.Sprintf("panic: %v", r))
		}
	}()

	return b.runner.CrawlASIN(ctx, asin, maxPages)
}
