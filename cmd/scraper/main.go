package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/amazon-review-scraper/internal/browser"
	"github.com/maltedev/amazon-review-scraper/internal/config"
	"github.com/maltedev/amazon-review-scraper/internal/crawler"
	"github.com/maltedev/amazon-review-scraper/internal/database"
	"github.com/maltedev/amazon-review-scraper/internal/events"
	"github.com/maltedev/amazon-review-scraper/internal/export"
	"github.com/maltedev/amazon-review-scraper/internal/scraper"
	"github.com/maltedev/amazon-review-scraper/pkg/logger"
)

func main() {
	var (
		asins      = flag.String("asins", "", "Comma-separated list of ASINs to crawl")
		inputFile  = flag.String("file", "", "File containing ASINs (one per line)")
		maxPages   = flag.Int("max-pages", 0, "Page cap per product (0 uses config default)")
		exportFmt  = flag.String("export", "", "Export stored reviews after the crawl: csv or ndjson")
		exportOut  = flag.String("export-out", "", "Export destination file (default stdout)")
		dedupe     = flag.Bool("dedupe", false, "Run the content dedupe maintenance pass instead of crawling")
		deleteASIN = flag.String("delete", "", "Delete stored reviews for an ASIN instead of crawling")
		headless   = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting review scraper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	repo := database.NewReviewRepository(db)

	// maintenance modes short-circuit the crawl
	if *dedupe {
		removed, err := repo.DedupeByContent(ctx)
		if err != nil {
			logger.Error("dedupe failed", "error", err)
			os.Exit(1)
		}
		logger.Info("dedupe finished", "removed", removed)
		return
	}
	if *deleteASIN != "" {
		if !crawler.ValidASIN(*deleteASIN) {
			log.Fatalf("Invalid ASIN: %s", *deleteASIN)
		}
		deleted, err := repo.DeleteByASIN(ctx, *deleteASIN)
		if err != nil {
			logger.Error("delete failed", "error", err, "asin", *deleteASIN)
			os.Exit(1)
		}
		logger.Info("reviews deleted", "asin", *deleteASIN, "count", deleted)
		return
	}

	targets, err := collectASINs(*asins, *inputFile)
	if err != nil {
		log.Fatalf("Failed to read ASINs: %v", err)
	}
	if len(targets) == 0 && *exportFmt == "" {
		log.Fatal("No ASINs given. Use -asins or -file, or -export to export stored reviews.")
	}

	if len(targets) > 0 {
		if err := runCrawl(ctx, cfg, db, repo, targets, *maxPages, *headless, logger); err != nil {
			logger.Error("crawl failed", "error", err)
			os.Exit(1)
		}
	}

	if *exportFmt != "" {
		if err := runExport(ctx, repo, *exportFmt, *exportOut); err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
	}
}

func runCrawl(ctx context.Context, cfg *config.Config, db *database.DB, repo *database.ReviewRepository, targets []string, maxPages int, headless bool, log *slog.Logger) error {
	b, err := browser.New(&browser.Options{
		Headless:       headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer b.Close()

	runner := scraper.NewSessionRunner(b, crawler.NewMergeEngine(repo, log), cfg, log)
	publisher := events.NewPublisher(db, log)

	coordinator := crawler.NewBatchCoordinator(runner, publisher, cfg.Scraper.ConcurrentLimit, log)
	stats := coordinator.CrawlBatch(ctx, targets, maxPages)

	log.Info("crawl finished",
		"asins", len(targets),
		"inserted", stats.ItemsInserted,
		"duplicate", stats.ItemsDuplicate,
		"failed", len(stats.FailedASINs))

	if len(stats.FailedASINs) == len(targets) {
		return fmt.Errorf("all %d products failed", len(targets))
	}
	return nil
}

func collectASINs(flagValue, file string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	add := func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if !crawler.ValidASIN(s) {
			return fmt.Errorf("invalid ASIN: %s", s)
		}
		if _, dup := seen[s]; dup {
			return nil
		}
		seen[s] = struct{}{}
		out = append(out, s)
		return nil
	}

	for _, s := range strings.Split(flagValue, ",") {
		if err := add(s); err != nil {
			return nil, err
		}
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if err := add(scanner.Text()); err != nil {
				return nil, err
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func runExport(ctx context.Context, repo *database.ReviewRepository, format, out string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	reviews, err := repo.GetAll(ctx)
	if err != nil {
		return err
	}

	w := os.Stdout
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	return export.Write(w, f, reviews)
}
