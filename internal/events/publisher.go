package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/amazon-review-scraper/internal/database"
	"github.com/maltedev/amazon-review-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeRunCompleted is published when a crawl run for a product finishes
	EventTypeRunCompleted EventType = "REVIEW_RUN_COMPLETED"
)

// RunCompletedPayload is the payload for REVIEW_RUN_COMPLETED events.
// Downstream consumers use it to decide whether a product needs a
// follow-up crawl.
type RunCompletedPayload struct {
	EventID        string            `json:"event_id"`
	EventType      string            `json:"event_type"`
	Timestamp      time.Time         `json:"timestamp"`
	ASIN           string            `json:"asin"`
	Status         string            `json:"status"`
	PagesVisited   int               `json:"pages_visited"`
	PagesSucceeded int               `json:"pages_succeeded"`
	ReviewsSeen    int               `json:"reviews_seen"`
	ReviewsStored  int               `json:"reviews_stored"`
	Duplicates     int               `json:"duplicates"`
	ErrorCount     int               `json:"error_count"`
	Errors         []models.RunError `json:"errors,omitempty"`
	Source         string            `json:"source"`
}

// Publisher writes events through the transactional outbox so that a
// crash between the database write and the stream write cannot lose or
// duplicate an event.
type Publisher struct {
	db     *database.DB
	outbox *database.OutboxRepository
	logger *slog.Logger
}

// NewPublisher creates a new event publisher with database connection
func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: database.NewOutboxRepository(db),
		logger: logger.With("component", "event_publisher"),
	}
}

// PayloadFromStats builds a run-completed payload from crawl statistics.
func PayloadFromStats(asin string, stats *models.RunStats) *RunCompletedPayload {
	return &RunCompletedPayload{
		ASIN:           asin,
		Status:         string(stats.Status),
		PagesVisited:   stats.PagesVisited,
		PagesSucceeded: stats.PagesSucceeded,
		ReviewsSeen:    stats.ItemsSeen,
		ReviewsStored:  stats.ItemsInserted,
		Duplicates:     stats.ItemsDuplicate,
		ErrorCount:     len(stats.Errors),
		Errors:         stats.Errors,
	}
}

// PublishRun announces one finished crawl run. It satisfies the batch
// coordinator's RunPublisher interface.
func (p *Publisher) PublishRun(ctx context.Context, run *models.RunStats) error {
	return p.PublishRunCompleted(ctx, PayloadFromStats(run.ASIN, run))
}

// PublishRunCompleted publishes a REVIEW_RUN_COMPLETED event through the outbox
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload *RunCompletedPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeRunCompleted)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = "review-scraper"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "review_run",
		AggregateID:   payload.ASIN,
		EventType:     string(EventTypeRunCompleted),
		Payload:       data,
		TargetStream:  database.DefaultRunStream,
	}

	err = p.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"asin", payload.ASIN,
		"status", payload.Status,
		"outbox_id", outboxEvent.ID,
	)

	return nil
}
