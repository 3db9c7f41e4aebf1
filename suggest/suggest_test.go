package suggest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ExaDev/peek-package/internal/core"
)

// suggestAdapter is a stub core.Adapter whose only live path is Suggest.
type suggestAdapter struct {
	eco   core.Ecosystem
	calls atomic.Int64

	mu      sync.Mutex
	queries []string
	results []core.Suggestion
	err     error
	delay   time.Duration
}

func (a *suggestAdapter) Ecosystem() core.Ecosystem        { return a.eco }
func (a *suggestAdapter) Supports(eco core.Ecosystem) bool { return eco == a.eco }

func (a *suggestAdapter) Fetch(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	return nil, errors.New("not used")
}

func (a *suggestAdapter) EnrichGitHub(ctx context.Context, stats *core.PackageStats) *core.PackageStats {
	return stats
}

func (a *suggestAdapter) Suggest(ctx context.Context, query string, limit int) ([]core.Suggestion, error) {
	a.calls.Add(1)
	a.mu.Lock()
	a.queries = append(a.queries, query)
	results, err, delay := a.results, a.err, a.delay
	a.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if limit < len(results) {
		results = results[:limit]
	}
	return results, err
}

func (a *suggestAdapter) lastQuery() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queries) == 0 {
		return ""
	}
	return a.queries[len(a.queries)-1]
}

type capture struct {
	mu          sync.Mutex
	deliveries  int
	suggestions []core.Suggestion
	err         error
	done        chan struct{}
}

func newCapture() *capture {
	return &capture{done: make(chan struct{}, 16)}
}

func (c *capture) callback(suggestions []core.Suggestion, err error) {
	c.mu.Lock()
	c.deliveries++
	c.suggestions = suggestions
	c.err = err
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *capture) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery before timeout")
	}
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliveries
}

func suggestions(names ...string) []core.Suggestion {
	out := make([]core.Suggestion, len(names))
	for i, n := range names {
		out[i] = core.Suggestion{Name: n}
	}
	return out
}

func TestQueryShortCircuitsShortInput(t *testing.T) {
	adapter := &suggestAdapter{eco: core.EcosystemNpm}
	e := NewEngine([]core.Adapter{adapter}, WithDebounce(10*time.Millisecond))
	c := newCapture()

	e.Query(context.Background(), core.EcosystemNpm, "r", c.callback)
	c.wait(t)

	if c.suggestions != nil || c.err != nil {
		t.Errorf("delivery = %v, %v, want nil, nil", c.suggestions, c.err)
	}
	if adapter.calls.Load() != 0 {
		t.Errorf("adapter calls = %d, want 0", adapter.calls.Load())
	}
}

func TestQueryDelivers(t *testing.T) {
	adapter := &suggestAdapter{eco: core.EcosystemNpm, results: suggestions("react", "react-dom")}
	e := NewEngine([]core.Adapter{adapter}, WithDebounce(10*time.Millisecond))
	c := newCapture()

	e.Query(context.Background(), core.EcosystemNpm, "reac", c.callback)
	c.wait(t)

	if c.err != nil {
		t.Fatalf("err = %v", c.err)
	}
	if len(c.suggestions) != 2 || c.suggestions[0].Name != "react" {
		t.Errorf("suggestions = %+v", c.suggestions)
	}
}

func TestQueryDebouncesKeystrokes(t *testing.T) {
	adapter := &suggestAdapter{eco: core.EcosystemNpm, results: suggestions("react")}
	e := NewEngine([]core.Adapter{adapter}, WithDebounce(50*time.Millisecond))
	c := newCapture()

	for _, text := range []string{"re", "rea", "reac", "react"} {
		e.Query(context.Background(), core.EcosystemNpm, text, c.callback)
		time.Sleep(5 * time.Millisecond)
	}
	c.wait(t)

	if got := adapter.calls.Load(); got != 1 {
		t.Errorf("adapter calls = %d, want 1 after debounce", got)
	}
	if got := adapter.lastQuery(); got != "react" {
		t.Errorf("looked up %q, want the final keystroke state", got)
	}
	if c.count() != 1 {
		t.Errorf("deliveries = %d, want 1", c.count())
	}
}

func TestQuerySupersedesInFlight(t *testing.T) {
	adapter := &suggestAdapter{eco: core.EcosystemNpm, results: suggestions("react"), delay: 100 * time.Millisecond}
	e := NewEngine([]core.Adapter{adapter}, WithDebounce(5*time.Millisecond))

	stale := newCapture()
	e.Query(context.Background(), core.EcosystemNpm, "reac", stale.callback)

	// Let the first lookup start, then supersede it.
	time.Sleep(30 * time.Millisecond)
	fresh := newCapture()
	e.Query(context.Background(), core.EcosystemNpm, "react", fresh.callback)
	fresh.wait(t)

	// The superseded callback stays silent even after its lookup returns.
	time.Sleep(150 * time.Millisecond)
	if stale.count() != 0 {
		t.Errorf("stale deliveries = %d, want 0", stale.count())
	}
	if fresh.count() != 1 {
		t.Errorf("fresh deliveries = %d, want 1", fresh.count())
	}
}

func TestCancelDiscardsPending(t *testing.T) {
	adapter := &suggestAdapter{eco: core.EcosystemNpm, results: suggestions("react")}
	e := NewEngine([]core.Adapter{adapter}, WithDebounce(30*time.Millisecond))
	c := newCapture()

	e.Query(context.Background(), core.EcosystemNpm, "reac", c.callback)
	e.Cancel()

	time.Sleep(100 * time.Millisecond)
	if c.count() != 0 {
		t.Errorf("deliveries = %d, want 0 after cancel", c.count())
	}
	if adapter.calls.Load() != 0 {
		t.Errorf("adapter calls = %d, want 0", adapter.calls.Load())
	}
}

func TestQueryCapsDeliveredResults(t *testing.T) {
	adapter := &suggestAdapter{
		eco: core.EcosystemNpm,
		results: suggestions("a", "b", "c", "d", "e",
			"f", "g", "h", "i", "j"),
	}
	e := NewEngine([]core.Adapter{adapter}, WithDebounce(10*time.Millisecond), WithLimit(3))
	c := newCapture()

	e.Query(context.Background(), core.EcosystemNpm, "pkg", c.callback)
	c.wait(t)

	if len(c.suggestions) != 3 {
		t.Errorf("len = %d, want capped to 3", len(c.suggestions))
	}
}

func TestQueryUnknownEcosystem(t *testing.T) {
	e := NewEngine(nil, WithDebounce(10*time.Millisecond))
	c := newCapture()

	e.Query(context.Background(), core.EcosystemNpm, "react", c.callback)
	c.wait(t)

	if c.err == nil {
		t.Fatal("expected error for unknown ecosystem")
	}
}

func TestQueryPropagatesLookupError(t *testing.T) {
	boom := errors.New("upstream down")
	adapter := &suggestAdapter{eco: core.EcosystemNpm, err: boom}
	e := NewEngine([]core.Adapter{adapter}, WithDebounce(10*time.Millisecond))
	c := newCapture()

	e.Query(context.Background(), core.EcosystemNpm, "reac", c.callback)
	c.wait(t)

	if !errors.Is(c.err, boom) {
		t.Errorf("err = %v, want %v", c.err, boom)
	}
}
