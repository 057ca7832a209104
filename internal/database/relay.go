package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StreamClient is the slice of the Redis API the relay needs.
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// OutboxSource feeds the relay due events and records outcomes.
// *OutboxRepository satisfies it.
type OutboxSource interface {
	Due(ctx context.Context, now time.Time, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	RecordFailure(ctx context.Context, id uuid.UUID, err error) (string, error)
	CountByStatus(ctx context.Context, statuses ...string) (int64, error)
}

// Relay drains the outbox into Redis streams. It polls on an interval,
// publishes each due event exactly once per attempt and leaves retry
// bookkeeping to the outbox repository.
type Relay struct {
	redis     StreamClient
	outbox    OutboxSource
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func NewRelay(db *DB, redisClient *redis.Client, logger *slog.Logger, config RelayConfig) *Relay {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Relay{
		redis:     redisClient,
		outbox:    NewOutboxRepository(db),
		logger:    logger.With("component", "relay"),
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
	}
}

// Start polls until the context is canceled. One bad batch does not
// stop the loop.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("starting relay",
		"interval", r.interval,
		"batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.drain(ctx); err != nil {
		r.logger.Error("failed to drain outbox on startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.Error("failed to drain outbox", "error", err)
			}
		}
	}
}

// drain publishes one batch of due events. Per-event failures are
// recorded against the event and do not abort the batch.
func (r *Relay) drain(ctx context.Context) error {
	events, err := r.outbox.Due(ctx, time.Now(), r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load due events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	r.logger.Debug("draining outbox", "count", len(events))

	for _, event := range events {
		if err := r.publish(ctx, event); err != nil {
			r.fail(ctx, event, err)
			continue
		}
		if err := r.outbox.MarkPublished(ctx, event.ID); err != nil {
			r.logger.Error("failed to mark event published",
				"event_id", event.ID, "error", err)
			continue
		}
		r.logger.Info("event published",
			"event_id", event.ID,
			"event_type", event.EventType,
			"asin", event.AggregateID,
			"stream", event.TargetStream)
	}
	return nil
}

// publish appends one event to its target stream. The payload travels
// verbatim; consumers parse it, the relay only checks it is JSON at all.
func (r *Relay) publish(ctx context.Context, event *OutboxEvent) error {
	if !json.Valid(event.Payload) {
		return fmt.Errorf("payload is not valid JSON")
	}

	args := &redis.XAddArgs{
		Stream: event.TargetStream,
		Values: map[string]any{
			"event_id":       event.ID.String(),
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID,
			"occurred_at":    event.CreatedAt.Format(time.RFC3339),
			"payload":        string(event.Payload),
		},
	}

	if _, err := r.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to append to stream: %w", err)
	}
	return nil
}

func (r *Relay) fail(ctx context.Context, event *OutboxEvent, pubErr error) {
	status, err := r.outbox.RecordFailure(ctx, event.ID, pubErr)
	if err != nil {
		r.logger.Error("failed to record publish failure",
			"event_id", event.ID, "error", err)
		return
	}
	if status == OutboxStatusDead {
		r.logger.Error("event moved to dead status",
			"event_id", event.ID,
			"asin", event.AggregateID,
			"attempts", event.AttemptCount+1,
			"error", pubErr)
		return
	}
	r.logger.Warn("event publish failed, will retry",
		"event_id", event.ID, "error", pubErr)
}

// PendingCount reports events still waiting for delivery.
func (r *Relay) PendingCount(ctx context.Context) (int64, error) {
	return r.outbox.CountByStatus(ctx, OutboxStatusPending, OutboxStatusRetrying)
}

// DeadCount reports events that exhausted their publish attempts.
func (r *Relay) DeadCount(ctx context.Context) (int64, error) {
	return r.outbox.CountByStatus(ctx, OutboxStatusDead)
}
