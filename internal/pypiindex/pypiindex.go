// Package pypiindex provides the package-index source for PyPI: a full
// PEP 691 project listing and a smaller popular-packages dataset, plus a
// locally searchable corpus over whichever has loaded.
package pypiindex

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"

	"github.com/ExaDev/peek-package/client"
	"github.com/ExaDev/peek-package/internal/core"
)

const (
	// DefaultFullURL serves the full project listing, hundreds of
	// thousands of entries.
	DefaultFullURL = "https://pypi.org/simple/?format=application/vnd.pypi.simple.v1+json"

	// DefaultPopularURL serves the most-downloaded packages, tens of
	// thousands of entries, much faster to retrieve.
	DefaultPopularURL = "https://hugovk.github.io/top-pypi-packages/top-pypi-packages.min.json"

	// DefaultLimit caps how many matches a search computes.
	DefaultLimit = 50

	minQueryLen = 2
)

// Client fetches the two index datasets.
type Client struct {
	fullURL    string
	popularURL string
	client     *client.Client
}

func NewClient(c *client.Client) *Client {
	if c == nil {
		c = client.DefaultClient()
	}
	return &Client{
		fullURL:    DefaultFullURL,
		popularURL: DefaultPopularURL,
		client:     c,
	}
}

// WithURLs overrides the dataset endpoints, for tests.
func (c *Client) WithURLs(fullURL, popularURL string) *Client {
	if fullURL != "" {
		c.fullURL = fullURL
	}
	if popularURL != "" {
		c.popularURL = popularURL
	}
	return c
}

type fullListing struct {
	Meta struct {
		APIVersion string `json:"api_version"`
	} `json:"meta"`
	Projects []struct {
		Name string `json:"name"`
	} `json:"projects"`
}

type popularListing struct {
	Rows []PopularPackage `json:"rows"`
}

// PopularPackage is one row of the popular dataset.
type PopularPackage struct {
	Project       string `json:"project"`
	DownloadCount int64  `json:"download_count"`
}

// FullProjects fetches the PEP 691 listing and returns the project names.
func (c *Client) FullProjects(ctx context.Context) ([]string, error) {
	var listing fullListing
	if err := c.client.GetJSON(ctx, c.fullURL, &listing); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(listing.Projects))
	for _, p := range listing.Projects {
		names = append(names, p.Name)
	}
	return names, nil
}

// PopularProjects fetches the popular dataset with download counts.
func (c *Client) PopularProjects(ctx context.Context) ([]PopularPackage, error) {
	var listing popularListing
	if err := c.client.GetJSON(ctx, c.popularURL, &listing); err != nil {
		return nil, err
	}
	return listing.Rows, nil
}

// Corpus holds whichever dataset is currently loaded and answers fuzzy name
// lookups over it. While the full dataset is pending or failed, searches
// fall back to the popular dataset.
type Corpus struct {
	client *Client
	log    zerolog.Logger

	mu        sync.RWMutex
	names     []string
	downloads map[string]int64
	full      bool
}

func NewCorpus(c *Client, log zerolog.Logger) *Corpus {
	return &Corpus{
		client:    c,
		log:       log,
		downloads: make(map[string]int64),
	}
}

// Load prefetches both datasets in the background: the popular dataset
// first so search works quickly, then the full listing as an upgrade.
func (c *Corpus) Load(ctx context.Context) {
	go func() {
		if err := c.LoadPopular(ctx); err != nil {
			c.log.Warn().Err(err).Msg("popular dataset load failed")
		}
		if err := c.LoadFull(ctx); err != nil {
			c.log.Warn().Err(err).Msg("full dataset load failed, staying on popular")
		}
	}()
}

// LoadPopular synchronously loads the popular dataset. It never downgrades
// an already-loaded full dataset but always refreshes download counts.
func (c *Corpus) LoadPopular(ctx context.Context) error {
	rows, err := c.client.PopularProjects(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(rows))
	downloads := make(map[string]int64, len(rows))
	for _, row := range rows {
		names = append(names, row.Project)
		downloads[row.Project] = row.DownloadCount
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.downloads = downloads
	if !c.full {
		c.names = names
	}
	return nil
}

// LoadFull synchronously loads the full project listing.
func (c *Corpus) LoadFull(ctx context.Context) error {
	names, err := c.client.FullProjects(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = names
	c.full = true
	return nil
}

// Full reports whether the full dataset is the one loaded.
func (c *Corpus) Full() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.full
}

// Len returns the number of names currently searchable.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// Search returns up to limit fuzzy matches for query, best first. Matching
// is case-folded and Levenshtein-ranked, tolerating dropped letters like
// "djngo". Queries shorter than two characters match nothing.
func (c *Corpus) Search(query string, limit int) []core.IndexMatch {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLen {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	c.mu.RLock()
	names := c.names
	c.mu.RUnlock()

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Sort(ranks)
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}

	matches := make([]core.IndexMatch, 0, len(ranks))
	for _, r := range ranks {
		m := core.IndexMatch{Name: r.Target}
		if count, ok := c.Downloads(r.Target); ok {
			m.Downloads = core.Int64(count)
		}
		matches = append(matches, m)
	}
	return matches
}

// Downloads reports the popular-dataset download count for a package.
func (c *Corpus) Downloads(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count, ok := c.downloads[name]
	return count, ok
}
