// Package gh provides the source-host client used to enrich package records
// with repository statistics. Fetch failures are classified into an
// error-tagged result rather than returned as errors, so a failed enrichment
// never aborts an aggregation.
package gh

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"

	"github.com/ExaDev/peek-package/internal/core"
)

// ErrBadRepoURL is returned when an owner/repo pair cannot be parsed out of
// a repository URL.
var ErrBadRepoURL = errors.New("unrecognized repository URL")

// Matches https, git+https and ssh-style URLs, tolerating a .git suffix and
// repo names containing dots (next.js).
var repoURLRe = regexp.MustCompile(`github\.com[:/]([^/]+?)/([^/?#]+?)(?:\.git)?(?:[?#/]|$)`)

// ParseRepoURL extracts the owner and repository name from a URL.
func ParseRepoURL(rawURL string) (owner, repo string, err error) {
	m := repoURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", fmt.Errorf("%w: %s", ErrBadRepoURL, rawURL)
	}
	return m[1], m[2], nil
}

// Client wraps the GitHub REST API. An optional bearer token read from the
// injected key-value store raises the rate limit from 60/hr to 5,000/hr.
type Client struct {
	mu     sync.RWMutex
	gh     *github.Client
	tokens core.KVStore
	log    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTokenStore sets the store the bearer token is read from and persisted
// to.
func WithTokenStore(s core.KVStore) Option {
	return func(c *Client) {
		c.tokens = s
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithGitHubClient substitutes the underlying API client, for tests.
func WithGitHubClient(g *github.Client) Option {
	return func(c *Client) {
		c.gh = g
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		tokens: core.NewMemoryStore(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gh == nil {
		c.gh = newAPIClient(c.storedToken())
	}
	return c
}

func newAPIClient(token string) *github.Client {
	g := github.NewClient(nil)
	if token != "" {
		g = g.WithAuthToken(token)
	}
	return g
}

func (c *Client) storedToken() string {
	token, _ := c.tokens.Get(core.TokenKey)
	return token
}

// SetToken persists a bearer token and rebuilds the API client with it.
func (c *Client) SetToken(token string) {
	c.tokens.Set(core.TokenKey, token)
	c.mu.Lock()
	c.gh = newAPIClient(token)
	c.mu.Unlock()
}

// ClearToken removes the stored token and reverts to unauthenticated access.
func (c *Client) ClearToken() {
	c.tokens.Delete(core.TokenKey)
	c.mu.Lock()
	c.gh = newAPIClient("")
	c.mu.Unlock()
}

func (c *Client) api() *github.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gh
}

// Repository fetches repository statistics for a repository URL. The result
// is always non-nil: on failure it carries an error tag and message instead
// of counters.
func (c *Client) Repository(ctx context.Context, repoURL string) *core.GitHubStats {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		c.log.Warn().Str("url", repoURL).Msg("invalid repository URL")
		return &core.GitHubStats{
			Error:        core.GitHubErrNetwork,
			ErrorMessage: err.Error(),
		}
	}

	r, _, err := c.api().Repositories.Get(ctx, owner, repo)
	if err != nil {
		return c.classify(err, owner, repo)
	}

	return &core.GitHubStats{
		Stars:         core.Int64(int64(r.GetStargazersCount())),
		Forks:         core.Int64(int64(r.GetForksCount())),
		OpenIssues:    core.Int64(int64(r.GetOpenIssuesCount())),
		Subscribers:   core.Int64(int64(r.GetSubscribersCount())),
		CreatedAt:     r.GetCreatedAt().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     r.GetUpdatedAt().Format("2006-01-02T15:04:05Z"),
		PushedAt:      r.GetPushedAt().Format("2006-01-02T15:04:05Z"),
		DefaultBranch: r.GetDefaultBranch(),
		Size:          core.Int64(int64(r.GetSize())),
		Homepage:      r.GetHomepage(),
	}
}

func (c *Client) classify(err error, owner, repo string) *core.GitHubStats {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		c.log.Warn().Str("repo", owner+"/"+repo).Msg("rate limit exceeded, consider adding a token")
		return &core.GitHubStats{
			Error:        core.GitHubErrRateLimit,
			ErrorMessage: "GitHub API rate limit exceeded. Add a token to increase limit.",
		}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case 404:
			c.log.Warn().Str("repo", owner+"/"+repo).Msg("repository not found")
			return &core.GitHubStats{
				Error:        core.GitHubErrNotFound,
				ErrorMessage: "Repository not found",
			}
		case 403, 429:
			c.log.Warn().Str("repo", owner+"/"+repo).Msg("rate limit exceeded, consider adding a token")
			return &core.GitHubStats{
				Error:        core.GitHubErrRateLimit,
				ErrorMessage: "GitHub API rate limit exceeded. Add a token to increase limit.",
			}
		}
	}

	c.log.Warn().Err(err).Str("repo", owner+"/"+repo).Msg("repository fetch failed")
	return &core.GitHubStats{
		Error:        core.GitHubErrNetwork,
		ErrorMessage: fmt.Sprintf("GitHub API error: %v", err),
	}
}

// Readme fetches and decodes the repository README. All failures are
// returned as errors for the caller to log and drop.
func (c *Client) Readme(ctx context.Context, repoURL string) (string, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return "", err
	}

	readme, _, err := c.api().Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		return "", fmt.Errorf("fetching readme for %s/%s: %w", owner, repo, err)
	}

	content, err := readme.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding readme for %s/%s: %w", owner, repo, err)
	}
	return content, nil
}

// Contributors returns the repository's contributor list ordered by commit
// count descending, as reported by the API.
func (c *Client) Contributors(ctx context.Context, repoURL string) ([]core.Contributor, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	list, _, err := c.api().Repositories.ListContributors(ctx, owner, repo, &github.ListContributorsOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching contributors for %s/%s: %w", owner, repo, err)
	}

	out := make([]core.Contributor, 0, len(list))
	for _, contrib := range list {
		out = append(out, core.Contributor{
			Username:     contrib.GetLogin(),
			CommitsCount: int64(contrib.GetContributions()),
		})
	}
	return out, nil
}

// Quota reports the remaining unauthenticated or authenticated request
// budget. On error it degrades to an exhausted 60/hr budget.
type Quota struct {
	Remaining int
	Limit     int
	Reset     int64 // unix seconds
}

func (c *Client) RateLimit(ctx context.Context) Quota {
	limits, _, err := c.api().RateLimit.Get(ctx)
	if err != nil || limits.GetCore() == nil {
		c.log.Warn().Err(err).Msg("rate limit probe failed")
		return Quota{Remaining: 0, Limit: 60, Reset: 0}
	}
	cl := limits.GetCore()
	return Quota{
		Remaining: cl.Remaining,
		Limit:     cl.Limit,
		Reset:     cl.Reset.Unix(),
	}
}
