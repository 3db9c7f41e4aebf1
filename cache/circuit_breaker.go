package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/ExaDev/peek-package/internal/core"
)

// ErrUpstreamDown is returned when a source's circuit breaker is open.
var ErrUpstreamDown = errors.New("upstream source unavailable")

// BreakerStore wraps a Store with per-ecosystem circuit breakers so a
// misbehaving registry stops receiving traffic while the other ecosystem
// keeps working.
type BreakerStore struct {
	store    *Store
	breakers map[core.Ecosystem]*circuit.Breaker
	mu       sync.RWMutex
}

// NewBreakerStore creates a circuit-breaker wrapper around a store.
func NewBreakerStore(store *Store) *BreakerStore {
	return &BreakerStore{
		store:    store,
		breakers: make(map[core.Ecosystem]*circuit.Breaker),
	}
}

// getBreaker returns or creates the circuit breaker for an ecosystem.
func (bs *BreakerStore) getBreaker(eco core.Ecosystem) *circuit.Breaker {
	bs.mu.RLock()
	breaker, exists := bs.breakers[eco]
	bs.mu.RUnlock()

	if exists {
		return breaker
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := bs.breakers[eco]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, recovering with exponential
	// backoff between 30s and 5m.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	bs.breakers[eco] = breaker
	return breaker
}

// Get wraps Store.Get with circuit breaker logic. Not-found and invalid
// input do not count as breaker failures.
func (bs *BreakerStore) Get(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	return bs.call(req, func() (*core.PackageStats, error) {
		return bs.store.Get(ctx, req)
	})
}

// Refresh wraps Store.Refresh with circuit breaker logic.
func (bs *BreakerStore) Refresh(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	return bs.call(req, func() (*core.PackageStats, error) {
		return bs.store.Refresh(ctx, req)
	})
}

// RefreshGitHub wraps Store.RefreshGitHub. The source-host leg degrades
// internally, so it never trips the registry breaker.
func (bs *BreakerStore) RefreshGitHub(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	return bs.store.RefreshGitHub(ctx, req)
}

func (bs *BreakerStore) call(req core.Request, fn func() (*core.PackageStats, error)) (*core.PackageStats, error) {
	breaker := bs.getBreaker(req.Ecosystem)

	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", req.Ecosystem, ErrUpstreamDown)
	}

	var stats *core.PackageStats
	var softErr error
	err := breaker.Call(func() error {
		var fetchErr error
		stats, fetchErr = fn()
		if fetchErr != nil && (errors.Is(fetchErr, core.ErrNotFound) || errors.Is(fetchErr, core.ErrInvalidInput)) {
			// The registry answered; report the miss without
			// counting it against the breaker.
			softErr = fetchErr
			return nil
		}
		return fetchErr
	}, 0)

	if err != nil {
		return nil, err
	}
	if softErr != nil {
		return nil, softErr
	}
	return stats, nil
}

// BreakerState returns the current per-ecosystem breaker states, for health
// reporting.
func (bs *BreakerStore) BreakerState() map[core.Ecosystem]string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	states := make(map[core.Ecosystem]string)
	for eco, breaker := range bs.breakers {
		if breaker.Tripped() {
			states[eco] = "open"
		} else {
			states[eco] = "closed"
		}
	}
	return states
}
