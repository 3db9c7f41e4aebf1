// Package cache provides the fetch orchestrator: a request-deduplicating,
// time-based cache over ecosystem adapters, keyed by (ecosystem, name).
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ExaDev/peek-package/internal/core"
)

const (
	// DefaultStaleAfter is the freshness window: data younger than this
	// is served without a network call.
	DefaultStaleAfter = time.Hour

	// DefaultRetainFor is the retention window: stale data is kept this
	// long for instant reuse when a package is re-added.
	DefaultRetainFor = 7 * 24 * time.Hour

	// DefaultMaxRetries is the number of automatic retries per failed
	// fetch before the failure is surfaced as terminal.
	DefaultMaxRetries = 1
)

type key struct {
	eco  core.Ecosystem
	name string
}

func (k key) String() string {
	return string(k.eco) + "/" + k.name
}

type entry struct {
	stats     *core.PackageStats
	fetchedAt time.Time
}

// Store caches PackageStats records per (ecosystem, name). Concurrent
// requests for the same key collapse onto one underlying fetch; the
// in-flight call is the per-key mutual exclusion, and the last writer for a
// key wins. Records are fully replaced on every refetch.
type Store struct {
	adapters map[core.Ecosystem]core.Adapter

	group singleflight.Group

	mu      sync.RWMutex
	entries map[key]entry

	staleAfter time.Duration
	retainFor  time.Duration
	maxRetries int
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithStaleAfter sets the freshness window.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) {
		s.staleAfter = d
	}
}

// WithRetainFor sets the retention window.
func WithRetainFor(d time.Duration) Option {
	return func(s *Store) {
		s.retainFor = d
	}
}

// WithMaxRetries sets the automatic retry count per failed fetch.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		s.maxRetries = n
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store over the given adapters.
func NewStore(adapters []core.Adapter, opts ...Option) *Store {
	s := &Store{
		adapters:   make(map[core.Ecosystem]core.Adapter, len(adapters)),
		entries:    make(map[key]entry),
		staleAfter: DefaultStaleAfter,
		retainFor:  DefaultRetainFor,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, a := range adapters {
		s.adapters[a.Ecosystem()] = a
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) adapter(eco core.Ecosystem) (core.Adapter, error) {
	a, ok := s.adapters[eco]
	if !ok {
		return nil, fmt.Errorf("no adapter for ecosystem %q", eco)
	}
	return a, nil
}

// Get returns the record for a request, serving cached data inside the
// freshness window and otherwise dispatching one deduplicated fetch.
func (s *Store) Get(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	k := key{eco: req.Ecosystem, name: req.Name}

	if stats, ok := s.fresh(k); ok {
		return stats, nil
	}

	v, err, _ := s.group.Do(k.String(), func() (any, error) {
		// A concurrent caller may have completed the fetch while this
		// one waited on the group.
		if stats, ok := s.fresh(k); ok {
			return stats, nil
		}
		return s.fetch(ctx, req, k)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.PackageStats), nil
}

func (s *Store) fresh(k key) (*core.PackageStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[k]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.fetchedAt) >= s.staleAfter {
		return nil, false
	}
	return e.stats, true
}

func (s *Store) fetch(ctx context.Context, req core.Request, k key) (*core.PackageStats, error) {
	a, err := s.adapter(req.Ecosystem)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		stats, err := a.Fetch(ctx, req)
		if err == nil {
			s.put(k, stats)
			return stats, nil
		}
		lastErr = err

		// Retrying cannot help a missing package or a bad request.
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalidInput) || ctx.Err() != nil {
			break
		}
		s.log.Warn().Err(err).Str("key", k.String()).Int("attempt", attempt+1).Msg("fetch failed")
	}
	return nil, lastErr
}

func (s *Store) put(k key, stats *core.PackageStats) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[k] = entry{stats: stats, fetchedAt: now}
	for existing, e := range s.entries {
		if now.Sub(e.fetchedAt) >= s.retainFor {
			delete(s.entries, existing)
		}
	}
}

// Refresh discards any cached record and runs a full fetch with a fresh
// attempt counter.
func (s *Store) Refresh(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	s.Invalidate(req)
	return s.Get(ctx, req)
}

// RefreshGitHub re-runs only the source-host enrichment leg against the
// cached record, leaving registry-sourced fields untouched. The two legs
// have very different rate-limit budgets, so they refresh independently.
// Without a cached record it falls back to a full fetch.
func (s *Store) RefreshGitHub(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	k := key{eco: req.Ecosystem, name: req.Name}

	s.mu.RLock()
	e, ok := s.entries[k]
	s.mu.RUnlock()
	if !ok {
		return s.Get(ctx, req)
	}

	a, err := s.adapter(req.Ecosystem)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(k.String()+"#github", func() (any, error) {
		stats := a.EnrichGitHub(ctx, e.stats)
		s.put(k, stats)
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.PackageStats), nil
}

// Invalidate marks a key stale so the next Get refetches, while keeping the
// record available for retention-window reuse.
func (s *Store) Invalidate(req core.Request) {
	k := key{eco: req.Ecosystem, name: req.Name}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[k]; ok {
		e.fetchedAt = time.Time{}
		s.entries[k] = e
	}
}

// Remove drops a key entirely.
func (s *Store) Remove(req core.Request) {
	k := key{eco: req.Ecosystem, name: req.Name}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, k)
}

// Tracked returns the currently cached requests, in no particular order.
func (s *Store) Tracked() []core.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Request, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, core.Request{Ecosystem: k.eco, Name: k.name})
	}
	return out
}
