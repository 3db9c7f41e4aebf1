// Package npms provides a client for the npms.io package analysis API, the
// primary metadata and score source for the npm ecosystem.
package npms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ExaDev/peek-package/client"
	"github.com/ExaDev/peek-package/internal/core"
)

const DefaultURL = "https://api.npms.io"

// Client fetches package analysis records and search suggestions.
type Client struct {
	baseURL string
	client  *client.Client
}

func New(baseURL string, c *client.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  c,
	}
}

// PackageResponse is the provider-shaped analysis record.
type PackageResponse struct {
	AnalyzedAt string    `json:"analyzedAt"`
	Collected  Collected `json:"collected"`
	Score      Score     `json:"score"`
}

type Collected struct {
	Metadata Metadata    `json:"metadata"`
	Npm      NpmCounters `json:"npm"`
	GitHub   GitHubBlock `json:"github"`
}

type Metadata struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Description      string            `json:"description"`
	Keywords         []string          `json:"keywords"`
	License          string            `json:"license"`
	Links            Links             `json:"links"`
	Author           *Author           `json:"author"`
	Maintainers      []MaintainerInfo  `json:"maintainers"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

type Links struct {
	Npm        string `json:"npm"`
	Homepage   string `json:"homepage"`
	Repository string `json:"repository"`
	Bugs       string `json:"bugs"`
}

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MaintainerInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type NpmCounters struct {
	Downloads       []DownloadWindow `json:"downloads"`
	DependentsCount *int64           `json:"dependentsCount"`
	StarsCount      *int64           `json:"starsCount"`
}

type DownloadWindow struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int64  `json:"count"`
}

type GitHubBlock struct {
	Homepage         string            `json:"homepage"`
	StarsCount       *int64            `json:"starsCount"`
	ForksCount       *int64            `json:"forksCount"`
	SubscribersCount *int64            `json:"subscribersCount"`
	Issues           *IssueCounters    `json:"issues"`
	Contributors     []ContributorInfo `json:"contributors"`
}

type IssueCounters struct {
	Count     int64 `json:"count"`
	OpenCount int64 `json:"openCount"`
}

type ContributorInfo struct {
	Username     string `json:"username"`
	CommitsCount int64  `json:"commitsCount"`
}

// Score carries the provider's 0-1 score triple.
type Score struct {
	Final  *float64    `json:"final"`
	Detail ScoreDetail `json:"detail"`
}

type ScoreDetail struct {
	Quality     *float64 `json:"quality"`
	Popularity  *float64 `json:"popularity"`
	Maintenance *float64 `json:"maintenance"`
}

// Suggestion is one ranked search completion.
type Suggestion struct {
	Package     SuggestionPackage `json:"package"`
	Score       Score             `json:"score"`
	SearchScore float64           `json:"searchScore"`
	Highlight   string            `json:"highlight"`
}

type SuggestionPackage struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Links       Links  `json:"links"`
}

// Package fetches the analysis record for a single package. A 404 maps to
// *core.NotFoundError; other non-2xx responses surface as *client.HTTPError
// with the status text in the message.
func (c *Client) Package(ctx context.Context, name string) (*PackageResponse, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty package name", core.ErrInvalidInput)
	}

	u := fmt.Sprintf("%s/v2/package/%s", c.baseURL, url.PathEscape(name))

	var resp PackageResponse
	if err := c.client.GetJSON(ctx, u, &resp); err != nil {
		var httpErr *client.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, &core.NotFoundError{Ecosystem: core.EcosystemNpm, Name: name}
		}
		return nil, err
	}
	return &resp, nil
}

// PackageMulti fetches analysis records for several packages in one call.
func (c *Client) PackageMulti(ctx context.Context, names []string) (map[string]PackageResponse, error) {
	u := fmt.Sprintf("%s/v2/package/mget", c.baseURL)

	out := make(map[string]PackageResponse, len(names))
	if err := c.client.PostJSON(ctx, u, names, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Suggestions returns ranked completions for a query. Queries shorter than
// two characters return an empty slice without a network call.
func (c *Client) Suggestions(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, nil
	}

	u := fmt.Sprintf("%s/v2/search/suggestions?q=%s", c.baseURL, url.QueryEscape(query))

	var out []Suggestion
	if err := c.client.GetJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out, nil
}
