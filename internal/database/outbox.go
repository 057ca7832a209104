package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Outbox lifecycle: an event is inserted as pending in the same
// transaction as the domain write, picked up by the relay, and either
// published or parked as retrying with a backoff. After too many
// failed attempts it goes dead and needs operator attention.
const (
	OutboxStatusPending   = "pending"
	OutboxStatusRetrying  = "retrying"
	OutboxStatusPublished = "published"
	OutboxStatusDead      = "dead"

	// MaxPublishAttempts bounds how often the relay retries one event.
	MaxPublishAttempts = 5

	// DefaultRunStream receives run-completed events unless the caller
	// targets a different stream.
	DefaultRunStream = "stream:review_runs"
)

// OutboxEvent is one row of the transactional outbox. Payload carries
// the serialized domain event; the remaining columns exist so the relay
// can route and retry without parsing it.
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	TargetStream  string
	Status        string
	AttemptCount  int
	LastError     *string
	CreatedAt     time.Time
	PublishedAt   *time.Time
	NextAttemptAt *time.Time
}

type OutboxRepository struct {
	db *DB
}

func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// InsertWithTx stages an event inside the caller's transaction so the
// event and the domain write commit or roll back together.
func (r *OutboxRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, event *OutboxEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = OutboxStatusPending
	}
	if event.TargetStream == "" {
		event.TargetStream = DefaultRunStream
	}

	now := time.Now()
	event.CreatedAt = now
	if event.NextAttemptAt == nil {
		event.NextAttemptAt = &now
	}

	query := `
		INSERT INTO outbox_event (
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, attempt_count,
			created_at, next_attempt_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		event.ID, event.AggregateType, event.AggregateID, event.EventType,
		event.Payload, event.TargetStream, event.Status, event.AttemptCount,
		event.CreatedAt, event.NextAttemptAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// Due returns events whose next attempt is at or before now, oldest
// first. Both fresh and retrying events qualify.
func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]*OutboxEvent, error) {
	query := `
		SELECT
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, attempt_count,
			last_error, created_at, published_at, next_attempt_at
		FROM outbox_event
		WHERE status IN ($1, $2)
			AND next_attempt_at <= $3
		ORDER BY created_at ASC
		LIMIT $4`

	rows, err := r.db.pool.Query(ctx, query,
		OutboxStatusPending, OutboxStatusRetrying, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		event := &OutboxEvent{}
		err := rows.Scan(
			&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType,
			&event.Payload, &event.TargetStream, &event.Status, &event.AttemptCount,
			&event.LastError, &event.CreatedAt, &event.PublishedAt, &event.NextAttemptAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return events, nil
}

// MarkPublished finalizes a successfully delivered event.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_event
		SET status = $1, published_at = $2
		WHERE id = $3`

	result, err := r.db.pool.Exec(ctx, query, OutboxStatusPublished, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %s", id)
	}
	return nil
}

// RecordFailure bumps the attempt counter and schedules the next try
// with exponential backoff, capped at five minutes. The count, the
// status transition and the backoff are computed in one statement so
// concurrent relays cannot race a read-modify-write. The new status is
// returned so callers can log dead events.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id uuid.UUID, attemptErr error) (string, error) {
	query := `
		UPDATE outbox_event
		SET attempt_count = attempt_count + 1,
			last_error = $2,
			status = CASE WHEN attempt_count + 1 >= $3 THEN $4 ELSE $5 END,
			next_attempt_at = NOW() + make_interval(secs =>
				LEAST(POW(2, attempt_count + 1), 300))
		WHERE id = $1
		RETURNING status`

	var status string
	err := r.db.pool.QueryRow(ctx, query,
		id, attemptErr.Error(), MaxPublishAttempts,
		OutboxStatusDead, OutboxStatusRetrying,
	).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("failed to record publish failure: %w", err)
	}
	return status, nil
}

// CountByStatus reports how many events sit in any of the given
// statuses. The health endpoint uses it to watch the backlog.
func (r *OutboxRepository) CountByStatus(ctx context.Context, statuses ...string) (int64, error) {
	query := `SELECT COUNT(*) FROM outbox_event WHERE status = ANY($1)`

	var count int64
	if err := r.db.pool.QueryRow(ctx, query, statuses).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return count, nil
}
