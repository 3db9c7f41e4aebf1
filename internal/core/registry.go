package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ExaDev/peek-package/client"
)

// Adapter is the interface implemented by all ecosystem adapters. An adapter
// orchestrates the registry clients for its ecosystem and merges their
// outputs into the canonical PackageStats model.
type Adapter interface {
	// Ecosystem returns the ecosystem tag this adapter serves.
	Ecosystem() Ecosystem

	// Supports reports whether the adapter handles the given ecosystem.
	Supports(eco Ecosystem) bool

	// Fetch builds a PackageStats record for one package. Primary-source
	// failures are returned as classified errors; source-host failures
	// degrade into the GitHub substructure and never fail the call.
	Fetch(ctx context.Context, req Request) (*PackageStats, error)

	// EnrichGitHub re-runs only the source-host leg against an existing
	// record and returns a copy with a fresh GitHub substructure. The
	// registry-sourced fields are carried over untouched.
	EnrichGitHub(ctx context.Context, stats *PackageStats) *PackageStats

	// Suggest returns ranked name completions for a query. Queries shorter
	// than two characters yield an empty result without a network call.
	Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error)
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Name        string
	Version     string
	Description string
	Score       *float64
	Downloads   *int64
	Highlight   string
}

// RepoHost fetches source-host repository data. Implementations classify
// failures into an error-tagged GitHubStats rather than returning an error,
// so a failed enrichment never aborts an aggregation.
type RepoHost interface {
	Repository(ctx context.Context, repoURL string) *GitHubStats
	Readme(ctx context.Context, repoURL string) (string, error)
	Contributors(ctx context.Context, repoURL string) ([]Contributor, error)
}

// NameIndex is a locally searchable package-name corpus.
type NameIndex interface {
	Search(query string, limit int) []IndexMatch
	Downloads(name string) (int64, bool)
}

// IndexMatch is one corpus search hit, best matches first.
type IndexMatch struct {
	Name      string
	Downloads *int64
}

// Deps carries the collaborators injected into adapter factories.
type Deps struct {
	BaseURL string
	Client  *client.Client
	Host    RepoHost  // nil disables source-host enrichment
	Index   NameIndex // nil disables corpus-backed lookups
	Logger  zerolog.Logger
}

// Factory creates an adapter instance for a given set of dependencies.
type Factory func(deps Deps) Adapter

var (
	factories = make(map[Ecosystem]Factory)
	defaults  = make(map[Ecosystem]string)
	mu        sync.RWMutex
)

// Register adds an adapter factory to the global registry. Adapters register
// themselves from init so that importing the ecosystem package is enough.
func Register(eco Ecosystem, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[eco] = factory
	defaults[eco] = defaultURL
}

// New creates an adapter for the given ecosystem. If deps.BaseURL is empty
// the default registry URL is used; if deps.Client is nil a default client
// is constructed.
func New(eco Ecosystem, deps Deps) (Adapter, error) {
	mu.RLock()
	factory, ok := factories[eco]
	defaultURL := defaults[eco]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown ecosystem: %s", eco)
	}

	if deps.BaseURL == "" {
		deps.BaseURL = defaultURL
	}
	if deps.Client == nil {
		deps.Client = client.DefaultClient()
	}

	return factory(deps), nil
}

// SupportedEcosystems returns all registered ecosystem tags.
func SupportedEcosystems() []Ecosystem {
	mu.RLock()
	defer mu.RUnlock()

	ecosystems := make([]Ecosystem, 0, len(factories))
	for eco := range factories {
		ecosystems = append(ecosystems, eco)
	}
	return ecosystems
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(eco Ecosystem) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[eco]
}
