// Package npm provides the npm ecosystem adapter. It merges npms.io
// analysis records with source-host repository data into the canonical
// PackageStats model.
package npm

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ExaDev/peek-package/internal/core"
	"github.com/ExaDev/peek-package/internal/npms"
)

const ecosystem = core.EcosystemNpm

func init() {
	core.Register(ecosystem, npms.DefaultURL, func(deps core.Deps) core.Adapter {
		return New(deps)
	})
}

// Adapter implements core.Adapter for npm.
type Adapter struct {
	npms *npms.Client
	host core.RepoHost
	log  zerolog.Logger
}

func New(deps core.Deps) *Adapter {
	return &Adapter{
		npms: npms.New(deps.BaseURL, deps.Client),
		host: deps.Host,
		log:  deps.Logger,
	}
}

func (a *Adapter) Ecosystem() core.Ecosystem {
	return ecosystem
}

func (a *Adapter) Supports(eco core.Ecosystem) bool {
	return eco == ecosystem
}

// Fetch builds a PackageStats record. The npms.io leg is terminal: its
// failures propagate as classified errors. The source-host leg only ever
// degrades the GitHub substructure.
func (a *Adapter) Fetch(ctx context.Context, req core.Request) (*core.PackageStats, error) {
	resp, err := a.npms.Package(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	stats := a.extract(req.Name, resp)
	a.enrich(ctx, stats)
	return stats, nil
}

// extract maps the nested provider response onto the canonical model.
// Missing nested objects default to empty rather than erroring.
func (a *Adapter) extract(requested string, resp *npms.PackageResponse) *core.PackageStats {
	meta := resp.Collected.Metadata

	name := meta.Name
	if name == "" {
		name = requested
	}
	version := meta.Version
	if version == "" {
		version = "0.0.0"
	}

	stats := &core.PackageStats{
		Name:        name,
		Ecosystem:   ecosystem,
		Version:     version,
		Quality:     scale(resp.Score.Detail.Quality),
		Popularity:  scale(resp.Score.Detail.Popularity),
		Maintenance: scale(resp.Score.Detail.Maintenance),
	}
	stats.FinalScore = core.ComputeFinalScore(stats.Quality, stats.Popularity, stats.Maintenance)

	if meta.Description != "" {
		stats.Description = core.String(meta.Description)
	}
	if meta.Links.Homepage != "" {
		stats.Homepage = core.String(meta.Links.Homepage)
	}
	if meta.Links.Repository != "" {
		stats.Repository = core.String(meta.Links.Repository)
	}

	license := meta.License
	if license == "" {
		license = "UNKNOWN"
	}
	stats.NPM = &core.NpmInfo{
		Dependencies:     sortedKeys(meta.Dependencies),
		DevDependencies:  sortedKeys(meta.DevDependencies),
		PeerDependencies: peerDeps(meta.PeerDependencies),
		License:          license,
		Keywords:         meta.Keywords,
	}

	counters := resp.Collected.Npm
	if len(counters.Downloads) > 0 {
		stats.WeeklyDownloads = core.Int64(counters.Downloads[0].Count)
	}
	stats.DependentsCount = counters.DependentsCount

	for _, m := range meta.Maintainers {
		stats.Maintainers = append(stats.Maintainers, core.Person{Name: m.Username, Email: m.Email})
	}
	if meta.Author != nil {
		stats.Author = &core.Person{Name: meta.Author.Name, Email: meta.Author.Email}
	}

	// Embedded source-host counters seed a low-fidelity GitHub block,
	// later overwritten by the authoritative enrichment leg.
	ghBlock := resp.Collected.GitHub
	if ghBlock.StarsCount != nil {
		seeded := &core.GitHubStats{
			Stars:         ghBlock.StarsCount,
			Forks:         ghBlock.ForksCount,
			Subscribers:   ghBlock.SubscribersCount,
			DefaultBranch: "main",
			Homepage:      ghBlock.Homepage,
		}
		if ghBlock.Issues != nil {
			seeded.OpenIssues = core.Int64(ghBlock.Issues.OpenCount)
		}
		stats.GitHub = seeded
		stats.Stars = seeded.Stars
		stats.Forks = seeded.Forks
		stats.OpenIssues = seeded.OpenIssues
	}
	for _, contrib := range ghBlock.Contributors {
		stats.Contributors = append(stats.Contributors, core.Contributor{
			Username:     contrib.Username,
			CommitsCount: contrib.CommitsCount,
		})
	}

	return stats
}

// enrich runs the source-host leg in place. A failed fetch keeps whatever
// was seeded; it surfaces an error tag only when no seed exists, so the
// error and populated counters stay mutually exclusive.
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
// existing record, leaving every registry-sourced field untouched.
func (a *Adapter) EnrichGitHub(ctx context.Context, stats *core.PackageStats) *core.PackageStats {
	out := *stats
	a.enrich(ctx, &out)
	return &out
}

// Suggest delegates to the npms.io suggestion endpoint, which is fuzzy and
// ranked server-side.
func (a *Adapter) Suggest(ctx context.Context, query string, limit int) ([]core.Suggestion, error) {
	raw, err := a.npms.Suggestions(ctx, query)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}

	out := make([]core.Suggestion, 0, len(raw))
	for _, s := range raw {
		out = append(out, core.Suggestion{
			Name:        s.Package.Name,
			Version:     s.Package.Version,
			Description: s.Package.Description,
			Score:       scale(s.Score.Final),
			Highlight:   s.Highlight,
		})
	}
	return out, nil
}

// scale converts the provider's 0-1 scores onto the canonical 0-100 range.
func scale(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return core.Float64(*v * 100)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func peerDeps(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
