package models

import (
	"time"
)

// Review is one normalized product review as stored in the database.
// ReviewID is unique across the whole store, not just per ASIN.
type Review struct {
	ID               int64     `json:"id,omitempty"`
	ASIN             string    `json:"asin"`
	ReviewID         string    `json:"review_id"`
	Title            string    `json:"title,omitempty"`
	Body             string    `json:"body,omitempty"`
	Rating           *float64  `json:"rating,omitempty"`
	ReviewDate       string    `json:"review_date,omitempty"` // YYYY-MM-DD, empty if unparseable
	VerifiedPurchase bool      `json:"verified_purchase"`
	HelpfulVotes     int       `json:"helpful_votes"`
	ReviewerName     string    `json:"reviewer_name,omitempty"`
	Variant          string    `json:"variant,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// ContentKey is the secondary dedup key used when review IDs disagree
// (native ID on one run, generated hash on another).
type ContentKey struct {
	ASIN  string
	Title string
	Body  string
	Date  string
}

func (r *Review) ContentKey() ContentKey {
	return ContentKey{
		ASIN:  r.ASIN,
		Title: r.Title,
		Body:  r.Body,
		Date:  r.ReviewDate,
	}
}

// HasNativeID reports whether the review carries an Amazon-assigned ID
// rather than a generated content hash.
func (r *Review) HasNativeID() bool {
	return r.ReviewID != "" && r.ReviewID[0] == 'R'
}

// RawReview holds loosely-typed fields as extracted from the DOM, before
// normalization. All fields are optional strings; missing is empty.
type RawReview struct {
	NativeID     string
	Title        string
	Body         string
	RatingText   string
	DateText     string
	VerifiedText string
	HelpfulText  string
	ReviewerName string
	Variant      string
}

type RunStatus string

const (
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
	RunFailed              RunStatus = "failed"
)

// ErrorCategory classifies per-page failures recorded in run stats.
type ErrorCategory string

const (
	ErrorFetchTimeout   ErrorCategory = "fetch_timeout"
	ErrorFetchBlocked   ErrorCategory = "fetch_blocked"
	ErrorFetchNetwork   ErrorCategory = "fetch_network"
	ErrorParseMalformed ErrorCategory = "parse_malformed"
	ErrorStorage        ErrorCategory = "storage"
)

// RunError is one error encountered during a run, with its page and category.
type RunError struct {
	Page     int           `json:"page"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

// PageDetail records the outcome of a single review-listing page.
type PageDetail struct {
	Page      int           `json:"page"`
	Parsed    int           `json:"parsed"`
	Inserted  int           `json:"inserted"`
	Duplicate int           `json:"duplicate"`
	Next      bool          `json:"next"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// RunStats aggregates the outcome of paginating one ASIN. It is ephemeral:
// returned to the caller and logged, never persisted.
type RunStats struct {
	ASIN           string       `json:"asin"`
	PagesVisited   int          `json:"pages_visited"`
	PagesSucceeded int          `json:"pages_succeeded"`
	ItemsSeen      int          `json:"items_seen"`
	ItemsInserted  int          `json:"items_inserted"`
	ItemsDuplicate int          `json:"items_duplicate"`
	Errors         []RunError   `json:"errors,omitempty"`
	Pages          []PageDetail `json:"pages,omitempty"`
	Status         RunStatus    `json:"status"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
}

func NewRunStats(asin string) *RunStats {
	return &RunStats{
		ASIN:      asin,
		Status:    RunCompleted,
		StartedAt: time.Now(),
	}
}

func (s *RunStats) RecordError(page int, category ErrorCategory, msg string) {
	s.Errors = append(s.Errors, RunError{Page: page, Category: category, Message: msg})
}

// BatchStats sums per-ASIN runs executed by the batch coordinator.
type BatchStats struct {
	Runs           map[string]*RunStats `json:"runs"`
	ItemsSeen      int                  `json:"items_seen"`
	ItemsInserted  int                  `json:"items_inserted"`
	ItemsDuplicate int                  `json:"items_duplicate"`
	FailedASINs    []string             `json:"failed_asins,omitempty"`
}

func NewBatchStats() *BatchStats {
	return &BatchStats{Runs: make(map[string]*RunStats)}
}

func (b *BatchStats) Add(stats *RunStats) {
	b.Runs[stats.ASIN] = stats
	b.ItemsSeen += stats.ItemsSeen
	b.ItemsInserted += stats.ItemsInserted
	b.ItemsDuplicate += stats.ItemsDuplicate
	if stats.Status == RunFailed {
		b.FailedASINs = append(b.FailedASINs, stats.ASIN)
	}
}
