// Package peek aggregates and compares package statistics from the npm and
// PyPI ecosystems. It merges registry metadata, quality scores and
// source-host repository data into one canonical record per package, caches
// records with request deduplication, and computes cross-package winner
// comparisons.
//
// Basic usage:
//
//	import (
//		"context"
//		peek "github.com/ExaDev/peek-package"
//		_ "github.com/ExaDev/peek-package/all"
//	)
//
//	adapter, err := peek.New(peek.EcosystemNpm, peek.Deps{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	stats, err := adapter.Fetch(context.Background(), peek.Request{
//		Ecosystem: peek.EcosystemNpm,
//		Name:      "react",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(stats.Name, stats.Version)
//
// The cache and compare packages build on the adapters:
//
//	store := cache.NewStore([]peek.Adapter{adapter})
//	result, err := compare.CompareMany(pkgs)
package peek

import (
	"context"
	"fmt"
	"sync"

	"github.com/git-pkgs/purl"

	"github.com/ExaDev/peek-package/client"
	"github.com/ExaDev/peek-package/internal/core"
)

// Re-export types from internal/core
type (
	// Adapter is the interface implemented by all ecosystem adapters.
	Adapter = core.Adapter

	// PackageStats is the canonical per-package statistics record.
	PackageStats = core.PackageStats

	// GitHubStats holds source-host repository data or an error tag.
	GitHubStats = core.GitHubStats

	// NpmInfo holds npm-registry-specific metadata.
	NpmInfo = core.NpmInfo

	// PyPIInfo holds PyPI-registry-specific metadata.
	PyPIInfo = core.PyPIInfo

	// Contributor is one entry of a repository's contributor list.
	Contributor = core.Contributor

	// Person identifies a maintainer or author.
	Person = core.Person

	// Suggestion is one autocomplete candidate.
	Suggestion = core.Suggestion

	// Request identifies a single package to fetch.
	Request = core.Request

	// Ecosystem identifies a supported package ecosystem.
	Ecosystem = core.Ecosystem

	// Deps carries the collaborators injected into adapter factories.
	Deps = core.Deps

	// RepoHost fetches source-host repository data.
	RepoHost = core.RepoHost

	// NameIndex is a locally searchable package-name corpus.
	NameIndex = core.NameIndex

	// KVStore is the injected settings persistence capability.
	KVStore = core.KVStore

	// HistoryEntry is one comparison submission.
	HistoryEntry = core.HistoryEntry

	// HistoryStore persists comparison submissions.
	HistoryStore = core.HistoryStore
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// Option configures a Client.
	Option = client.Option
)

// Re-export constants
const (
	EcosystemNpm  = core.EcosystemNpm
	EcosystemPyPI = core.EcosystemPyPI

	GitHubErrRateLimit = core.GitHubErrRateLimit
	GitHubErrNotFound  = core.GitHubErrNotFound
	GitHubErrNetwork   = core.GitHubErrNetwork

	TokenKey = core.TokenKey
)

// Re-export errors
var (
	ErrNotFound     = core.ErrNotFound
	ErrRateLimited  = core.ErrRateLimited
	ErrInvalidInput = core.ErrInvalidInput
)

// Error types
type (
	HTTPError      = client.HTTPError
	NotFoundError  = core.NotFoundError
	RateLimitError = core.RateLimitError
)

// New creates an adapter for the given ecosystem. If deps.BaseURL is empty
// the default registry URL is used; if deps.Client is nil, DefaultClient()
// is used.
//
// Supported ecosystems: "npm", "pypi"
func New(eco Ecosystem, deps Deps) (Adapter, error) {
	return core.New(eco, deps)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 2 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// SupportedEcosystems returns all registered ecosystem tags.
// Note: ecosystems must be imported to be registered.
func SupportedEcosystems() []Ecosystem {
	return core.SupportedEcosystems()
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(eco Ecosystem) string {
	return core.DefaultURL(eco)
}

// ComputeFinalScore derives the composite 30/35/35 score from the quality,
// popularity and maintenance components.
var ComputeFinalScore = core.ComputeFinalScore

// ValidateNames checks a comparison submission before any fetch is
// dispatched: 2-6 names, each non-empty, no duplicates.
var ValidateNames = core.ValidateNames

// NewMemoryStore returns an in-process KVStore, the default token store.
func NewMemoryStore() KVStore {
	return core.NewMemoryStore()
}

// NewMemoryHistory returns an in-process HistoryStore retaining at most
// limit entries, newest first; limit <= 0 keeps everything.
func NewMemoryHistory(limit int) HistoryStore {
	return core.NewMemoryHistory(limit)
}

// PackageURLs returns the well-known web URLs for a package record, keyed
// by "registry", "purl", "repository" and "homepage".
var PackageURLs = core.PackageURLs

// ParseRequest parses a Package URL (pkg:npm/react, pkg:pypi/django) into a
// fetch request.
func ParseRequest(purlStr string) (Request, error) {
	p, err := purl.Parse(purlStr)
	if err != nil {
		return Request{}, err
	}

	eco := Ecosystem(p.Type)
	switch eco {
	case EcosystemNpm, EcosystemPyPI:
	default:
		return Request{}, fmt.Errorf("unsupported ecosystem: %s", p.Type)
	}

	return Request{Ecosystem: eco, Name: p.FullName()}, nil
}

const defaultConcurrency = 6

// Fetcher is anything that resolves a request to a record. Adapters
// satisfy it directly; wrap a cache store's Get with a FetcherFunc.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*PackageStats, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (*PackageStats, error)

func (f FetcherFunc) Fetch(ctx context.Context, req Request) (*PackageStats, error) {
	return f(ctx, req)
}

// FetchMany fetches several packages in parallel with bounded concurrency.
// Individual fetch errors are returned per request; successful records are
// returned in the stats map. Both maps are keyed by request.
func FetchMany(ctx context.Context, f Fetcher, reqs []Request) (map[Request]*PackageStats, map[Request]error) {
	stats := make(map[Request]*PackageStats)
	errs := make(map[Request]error)
	var mu sync.Mutex
	sem := make(chan struct{}, defaultConcurrency)
	var wg sync.WaitGroup

	for _, req := range reqs {
		wg.Add(1)
		go func(r Request) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				errs[r] = ctx.Err()
				mu.Unlock()
				return
			}

			s, err := f.Fetch(ctx, r)
			mu.Lock()
			if err != nil {
				errs[r] = err
			} else {
				stats[r] = s
			}
			mu.Unlock()
		}(req)
	}

	wg.Wait()
	return stats, errs
}
