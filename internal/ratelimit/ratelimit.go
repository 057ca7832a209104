// Package ratelimit paces page fetches with randomized inter-page delays.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// JitteredRateLimiter sleeps a random duration inside [minDelay, maxDelay]
// between actions. The jitter avoids the fixed cadence a target site could
// key anti-bot detection on.
type JitteredRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJitteredRateLimiter(minDelay, maxDelay time.Duration) *JitteredRateLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &JitteredRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (r *JitteredRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.pickDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *JitteredRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
	if r.maxDelay < r.minDelay {
		r.maxDelay = r.minDelay
	}
}

func (r *JitteredRateLimiter) pickDelay() time.Duration {
	if r.minDelay >= r.maxDelay {
		return r.minDelay
	}
	return r.minDelay + time.Duration(rand.Int63n(int64(r.maxDelay-r.minDelay)))
}

// EscalatingRateLimiter widens the delay window multiplicatively after
// consecutive blocked responses and relaxes it back after sustained
// success. Ceilings keep a long bad streak from stalling a run forever.
type EscalatingRateLimiter struct {
	*JitteredRateLimiter
	blockCount    int
	successCount  int
	escalateAfter int
	factor        float64
	maxMin        time.Duration
	maxMax        time.Duration
}

func NewEscalatingRateLimiter(minDelay, maxDelay time.Duration) *EscalatingRateLimiter {
	return &EscalatingRateLimiter{
		JitteredRateLimiter: NewJitteredRateLimiter(minDelay, maxDelay),
		escalateAfter:       1,
		factor:              2.0,
		maxMin:              60 * time.Second,
		maxMax:              120 * time.Second,
	}
}

// RecordBlocked escalates the delay window.
func (e *EscalatingRateLimiter) RecordBlocked() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.blockCount++
	e.successCount = 0

	if e.blockCount < e.escalateAfter {
		return
	}
	e.blockCount = 0

	newMin := time.Duration(float64(e.minDelay) * e.factor)
	newMax := time.Duration(float64(e.maxDelay) * e.factor)
	if newMin > e.maxMin {
		newMin = e.maxMin
	}
	if newMax > e.maxMax {
		newMax = e.maxMax
	}
	e.minDelay = newMin
	e.maxDelay = newMax
}

// RecordSuccess gradually narrows the window back toward normal pacing.
func (e *EscalatingRateLimiter) RecordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.successCount++
	e.blockCount = 0

	if e.successCount < 5 {
		return
	}
	e.successCount = 0

	newMin := time.Duration(float64(e.minDelay) * 0.9)
	if newMin < time.Second {
		newMin = time.Second
	}
	e.minDelay = newMin
}

// Delays returns the current window, for logging and tests.
func (e *EscalatingRateLimiter) Delays() (min, max time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minDelay, e.maxDelay
}
