// Package suggest provides the debounced package-name suggestion engine.
// For npm it delegates to the score source's suggestion endpoint; for PyPI
// it searches the locally loaded package-index corpus.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ExaDev/peek-package/internal/core"
)

const (
	// DefaultDebounce is the quiet period after the last keystroke
	// before a lookup is issued.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultLimit bounds how many suggestions are delivered.
	DefaultLimit = 8

	// computeLimit bounds how many matches are computed before the
	// delivery cap is applied.
	computeLimit = 50

	minQueryLen = 2
)

// Callback receives the suggestions for the most recent query. Results of
// superseded queries are discarded, never delivered.
type Callback func(suggestions []core.Suggestion, err error)

// Engine debounces raw keystroke input and routes lookups to the adapter
// for the requested ecosystem. The debounce is cancel-and-restart: only the
// final pause triggers a lookup. A generation counter guards against stale
// responses arriving after a later query's results.
type Engine struct {
	adapters map[core.Ecosystem]core.Adapter
	debounce time.Duration
	limit    int
	log      zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithLimit sets the delivery cap.
func WithLimit(n int) Option {
	return func(e *Engine) {
		e.limit = n
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewEngine creates an engine over the given adapters.
func NewEngine(adapters []core.Adapter, opts ...Option) *Engine {
	e := &Engine{
		adapters: make(map[core.Ecosystem]core.Adapter, len(adapters)),
		debounce: DefaultDebounce,
		limit:    DefaultLimit,
		log:      zerolog.Nop(),
	}
	for _, a := range adapters {
		e.adapters[a.Ecosystem()] = a
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query schedules a suggestion lookup after the quiet period, cancelling
// any pending one. Queries shorter than two characters resolve immediately
// to an empty result with no network call. The callback runs on the
// engine's timer goroutine.
func (e *Engine) Query(ctx context.Context, eco core.Ecosystem, text string, fn Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	myGen := e.gen

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	text = strings.TrimSpace(text)
	if len(text) < minQueryLen {
		fn(nil, nil)
		return
	}

	e.timer = time.AfterFunc(e.debounce, func() {
		suggestions, err := e.lookup(ctx, eco, text)
		e.deliver(myGen, suggestions, err, fn)
	})
}

// Cancel drops any pending lookup and invalidates in-flight results.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) lookup(ctx context.Context, eco core.Ecosystem, text string) ([]core.Suggestion, error) {
	adapter, ok := e.adapters[eco]
	if !ok {
		return nil, fmt.Errorf("no adapter for ecosystem %q", eco)
	}

	suggestions, err := adapter.Suggest(ctx, text, computeLimit)
	if err != nil {
		return nil, err
	}
	if len(suggestions) > e.limit {
		suggestions = suggestions[:e.limit]
	}
	return suggestions, nil
}

// deliver invokes the callback only when no newer query has been issued.
func (e *Engine) deliver(gen uint64, suggestions []core.Suggestion, err error, fn Callback) {
	e.mu.Lock()
	current := e.gen == gen
	e.mu.Unlock()

	if !current {
		e.log.Debug().Msg("discarding stale suggestion result")
		return
	}
	fn(suggestions, err)
}
