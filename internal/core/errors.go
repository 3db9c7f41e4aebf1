package core

import (
	"errors"
	"fmt"

	"github.com/ExaDev/peek-package/client"
)

// HTTPError is the structured non-2xx response error produced by the HTTP
// client layer.
type HTTPError = client.HTTPError

// ErrNotFound is returned when a package does not exist on a registry.
var ErrNotFound = errors.New("not found")

// ErrRateLimited is returned when a primary source rate limits requests.
var ErrRateLimited = errors.New("rate limited")

// ErrInvalidInput is returned for malformed comparison requests, such as
// duplicate package names or fewer than two packages.
var ErrInvalidInput = errors.New("invalid input")

// NotFoundError wraps ErrNotFound with the package that was requested.
type NotFoundError struct {
	Ecosystem Ecosystem
	Name      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: package %s not found", e.Ecosystem, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError is returned when a primary source rate limits requests.
// Supplying a bearer token raises the source-host budget from 60/hr to 5,000/hr.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ValidateNames checks a comparison submission before any fetch is
// dispatched: 2-6 names, each non-empty, no duplicates.
func ValidateNames(names []string) error {
	if len(names) < 2 || len(names) > 6 {
		return fmt.Errorf("%w: need between 2 and 6 package names, got %d", ErrInvalidInput, len(names))
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty package name", ErrInvalidInput)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate package name %q", ErrInvalidInput, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
