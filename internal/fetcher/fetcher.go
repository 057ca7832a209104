// Package fetcher retrieves rendered review pages and classifies failures.
package fetcher

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindBlocked ErrorKind = "blocked"
	KindNetwork ErrorKind = "network"
)

// FetchError is the classified failure of a single page fetch. The crawler
// decides retry and stop behavior from the kind alone.
type FetchError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError unwraps err into a FetchError when possible.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Fetcher loads one URL and returns the rendered HTML.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
	Close() error
}
