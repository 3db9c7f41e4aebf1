// Package pypi provides the PyPI ecosystem adapter. The pypi.org JSON API
// is the primary source; the package-index corpus supplies download counts
// and local name search, and the source-host client enriches repository
// statistics.
package pypi

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ExaDev/peek-package/client"
	"github.com/ExaDev/peek-package/internal/core"
)

const (
	DefaultURL = "https://pypi.org"
	ecosystem  = core.EcosystemPyPI
)

func init() {
	core.Register(ecosystem, DefaultURL, func(deps core.Deps) core.Adapter {
		return New(deps)
	})
}

// Adapter implements core.Adapter for PyPI.
type Adapter struct {
	baseURL string
	client  *client.Client
	host    core.RepoHost
	index   core.NameIndex
	log     zerolog.Logger
}

func New(deps core.Deps) *Adapter {
	baseURL := deps.BaseURL
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Adapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  deps.Client,
		host:    deps.Host,
		index:   deps.Index,
		log:     deps.Logger,
	}
}

func (a *Adapter) Ecosystem() core.Ecosystem {
	return ecosystem
}

func (a *Adapter) Supports(eco core.Ecosystem) bool {
	return eco == ecosystem
}

type packageResponse struct {
	Info     infoBlock                `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type infoBlock struct {
	Name              string            `json:"name"`
	Summary           string            `json:"summary"`
	HomePage          string            `json:"home_page"`
	License           string            `json:"license"`
	LicenseExpression string            `json:"license_expression"`
	Version           string            `json:"version"`
	Classifiers       []string          `json:"classifiers"`
	ProjectURLs       map[string]string `json:"project_urls"`
	RequiresDist      []string          `json:"requires_dist"`
	RequiresPython    string            `json:"requires_python"`
	Author            string            `json:"author"`
	AuthorEmail       string            `json:"author_email"`
	Maintainer        string            `json:"maintainer"`
	MaintainerEmail   string            `json:"maintainer_email"`
}

type releaseFile struct {
	URL        string `json:"url"`
	UploadTime string `json:"upload_time"`
	Yanked     bool   `json:"yanked"`
}

// Fetch builds a PackageStats record from the pypi.org JSON API. PyPI has
// no scoring source, so the score triple stays nil.
func (a *Adapter) Fetch(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	u := fmt.Sprintf("%s/pypi/%s/json", a.baseURL, req.Name)

	var resp packageResponse
	if err := a.client.GetJSON(ctx, u, &resp); err != nil {
		var httpErr *client.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.IsNotFound() {
				return nil, &core.NotFoundError{Ecosystem: ecosystem, Name: req.Name}
			}
			if httpErr.IsRateLimit() {
				return nil, &core.RateLimitError{}
			}
		}
		return nil, err
	}

	stats := a.extract(req.Name, &resp)
	a.enrich(ctx, stats)
	return stats, nil
}

func (a *Adapter) extract(requested string, resp *packageResponse) *core.PackageStats {
	info := resp.Info

	name := strings.ToLower(info.Name)
	if name == "" {
		name = requested
	}
	version := info.Version
	if version == "" {
		version = "0.0.0"
	}

	stats := &core.PackageStats{
		Name:      name,
		Ecosystem: ecosystem,
		Version:   version,
	}

	if info.Summary != "" {
		stats.Description = core.String(info.Summary)
	}
	if homepage := extractHomepage(info.ProjectURLs, info.HomePage); homepage != "" {
		stats.Homepage = core.String(homepage)
	}
	if repo := extractRepoURL(info.ProjectURLs, info.HomePage); repo != "" {
		stats.Repository = core.String(repo)
	}

	var uploads int64
	for _, files := range resp.Releases {
		uploads += int64(len(files))
	}

	stats.PyPI = &core.PyPIInfo{
		RequiresPython: info.RequiresPython,
		License:        extractLicense(info),
		Dependencies:   dependencyNames(info.RequiresDist),
		Uploads:        uploads,
		Classifiers:    info.Classifiers,
	}

	if info.Maintainer != "" || info.MaintainerEmail != "" {
		stats.Maintainers = append(stats.Maintainers, core.Person{
			Name:  info.Maintainer,
			Email: info.MaintainerEmail,
		})
	}
	if info.Author != "" || info.AuthorEmail != "" {
		stats.Author = &core.Person{Name: info.Author, Email: info.AuthorEmail}
	}

	if a.index != nil {
		if count, ok := a.index.Downloads(name); ok {
			stats.WeeklyDownloads = core.Int64(count)
		}
	}

	return stats
}

// enrich runs the source-host leg in place, mirroring the npm adapter's
// degradation rules.
func (a *Adapter) enrich(ctx context.Context, stats *core.PackageStats) {
	if a.host == nil || stats.Repository == nil {
		return
	}

	repo := a.host.Repository(ctx, *stats.Repository)
	if repo.Degraded() {
		a.log.Warn().
			Str("package", stats.Name).
			Str("reason", string(repo.Error)).
			Msg("source-host enrichment failed")
		if stats.GitHub == nil {
			stats.GitHub = repo
		}
		return
	}

	stats.GitHub = repo
	stats.Stars = repo.Stars
	stats.Forks = repo.Forks
	stats.OpenIssues = repo.OpenIssues

	if readme, err := a.host.Readme(ctx, *stats.Repository); err != nil {
		a.log.Warn().Err(err).Str("package", stats.Name).Msg("readme fetch failed")
	} else if readme != "" {
		repo.Readme = core.String(readme)
	}

	if contribs, err := a.host.Contributors(ctx, *stats.Repository); err != nil {
		a.log.Warn().Err(err).Str("package", stats.Name).Msg("contributors fetch failed")
	} else if len(contribs) > 0 {
		stats.Contributors = contribs
	}
}

// EnrichGitHub re-runs only the source-host leg against a copy of an
// existing record.
func (a *Adapter) EnrichGitHub(ctx context.Context, stats *core.PackageStats) *core.PackageStats {
	out := *stats
	a.enrich(ctx, &out)
	return &out
}

// Suggest performs a local fuzzy search over the loaded index dataset.
func (a *Adapter) Suggest(ctx context.Context, query string, limit int) ([]core.Suggestion, error) {
	if a.index == nil {
		return nil, nil
	}

	matches := a.index.Search(query, limit)
	out := make([]core.Suggestion, 0, len(matches))
	for _, m := range matches {
		out = append(out, core.Suggestion{
			Name:      m.Name,
			Downloads: m.Downloads,
		})
	}
	return out, nil
}

func extractRepoURL(projectURLs map[string]string, homePage string) string {
	priorityKeys := []string{"Repository", "Source", "Source Code", "Code"}
	for _, key := range priorityKeys {
		if url, ok := projectURLs[key]; ok && url != "" {
			if isRepoURL(url) {
				return url
			}
		}
	}

	for _, url := range projectURLs {
		if isRepoURL(url) && !strings.Contains(url, "github.com/sponsors") {
			return url
		}
	}

	if isRepoURL(homePage) {
		return homePage
	}

	return ""
}

func extractHomepage(projectURLs map[string]string, homePage string) string {
	if homePage != "" {
		return homePage
	}
	if url, ok := projectURLs["Homepage"]; ok {
		return url
	}
	if url, ok := projectURLs["Home"]; ok {
		return url
	}
	return ""
}

func isRepoURL(url string) bool {
	return strings.Contains(url, "github.com") ||
		strings.Contains(url, "gitlab.com") ||
		strings.Contains(url, "bitbucket.org") ||
		strings.Contains(url, "codeberg.org")
}

func extractLicense(info infoBlock) string {
	if info.LicenseExpression != "" {
		return info.LicenseExpression
	}
	if info.License != "" {
		return info.License
	}

	for _, classifier := range info.Classifiers {
		if strings.HasPrefix(classifier, "License :: ") {
			parts := strings.Split(classifier, " :: ")
			if len(parts) > 0 {
				return parts[len(parts)-1]
			}
		}
	}

	return ""
}

var pep508NameRegex = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*[A-Za-z0-9]|[A-Za-z0-9])`)

// dependencyNames extracts bare package names from PEP 508 requirement
// strings, dropping version constraints, extras and environment markers.
func dependencyNames(requiresDist []string) []string {
	names := make([]string, 0, len(requiresDist))
	for _, req := range requiresDist {
		req = strings.TrimSpace(strings.SplitN(req, ";", 2)[0])
		match := pep508NameRegex.FindString(req)
		if match == "" {
			continue
		}
		if idx := strings.Index(match, "["); idx != -1 {
			match = match[:idx]
		}
		names = append(names, match)
	}
	return names
}
