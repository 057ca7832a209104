package fetcher

import (
	"sync"
)

// Rotation holds a pool of values handed out in round-robin order. It is an
// explicit cursor object rather than package-level state so each browser
// context rotates independently and rotation order stays testable.
type Rotation struct {
	mu     sync.Mutex
	values []string
	index  int
}

func NewRotation(values []string) *Rotation {
	return &Rotation{values: values}
}

// Next returns the next pool entry, or empty when the pool is unset.
func (r *Rotation) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.values) == 0 {
		return ""
	}
	value := r.values[r.index]
	r.index = (r.index + 1) % len(r.values)
	return value
}

func (r *Rotation) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// NewUserAgentRotation builds a user-agent cursor, falling back to a small
// built-in desktop pool when none is configured.
func NewUserAgentRotation(userAgents []string) *Rotation {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return NewRotation(userAgents)
}

// NewProxyRotation builds a proxy cursor. An empty pool is valid and means
// direct connections.
func NewProxyRotation(proxies []string) *Rotation {
	return NewRotation(proxies)
}
