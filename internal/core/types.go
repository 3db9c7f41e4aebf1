// Package core provides the canonical package-statistics model and the
// ecosystem adapter registry.
package core

// Ecosystem identifies a supported package ecosystem.
type Ecosystem string

const (
	EcosystemNpm  Ecosystem = "npm"
	EcosystemPyPI Ecosystem = "pypi"
)

// Request identifies a single package to fetch.
type Request struct {
	Ecosystem Ecosystem
	Name      string
}

// GitHubErrorKind classifies why source-host enrichment was unavailable.
type GitHubErrorKind string

const (
	GitHubErrNone      GitHubErrorKind = ""
	GitHubErrRateLimit GitHubErrorKind = "rate_limit"
	GitHubErrNotFound  GitHubErrorKind = "not_found"
	GitHubErrNetwork   GitHubErrorKind = "network_error"
)

// GitHubStats holds source-host repository data. When the source-host fetch
// failed, Error/ErrorMessage are set and the counters are left nil; the two
// are never populated together.
type GitHubStats struct {
	Stars         *int64
	Forks         *int64
	OpenIssues    *int64
	Subscribers   *int64
	CreatedAt     string
	UpdatedAt     string
	PushedAt      string
	DefaultBranch string
	Size          *int64
	Homepage      string
	Readme        *string

	Error        GitHubErrorKind
	ErrorMessage string
}

// Degraded reports whether this record carries an error tag instead of data.
func (g *GitHubStats) Degraded() bool {
	return g != nil && g.Error != GitHubErrNone
}

// NpmInfo holds npm-registry-specific metadata.
type NpmInfo struct {
	Dependencies     []string
	DevDependencies  []string
	PeerDependencies map[string]string
	License          string
	Keywords         []string
}

// PyPIInfo holds PyPI-registry-specific metadata.
type PyPIInfo struct {
	RequiresPython string
	License        string
	Dependencies   []string
	Uploads        int64
	Classifiers    []string
}

// Contributor is one entry of a repository's ordered contributor list.
type Contributor struct {
	Username     string
	CommitsCount int64
}

// Person identifies a maintainer or author.
type Person struct {
	Name  string
	Email string
}

// PackageStats is the canonical, ecosystem-agnostic statistics record, one
// per package per comparison. Numeric metrics are either a finite value or
// nil, never a sentinel. Records are fully replaced on refetch.
type PackageStats struct {
	Name        string
	Ecosystem   Ecosystem
	Description *string
	Version     string
	Homepage    *string
	Repository  *string

	// Scores are 0-100, nil when the scoring source has no data.
	Quality     *float64
	Popularity  *float64
	Maintenance *float64
	FinalScore  *float64

	NPM  *NpmInfo
	PyPI *PyPIInfo

	WeeklyDownloads *int64
	DependentsCount *int64

	// Stars/Forks/OpenIssues mirror GitHub counters at the top level for
	// sorting and comparison.
	Stars      *int64
	Forks      *int64
	OpenIssues *int64

	GitHub       *GitHubStats
	Contributors []Contributor
	Maintainers  []Person
	Author       *Person
}

// ComputeFinalScore derives the composite score from the quality, popularity
// and maintenance components using 30/35/35 weights. Returns nil when any
// component is missing.
func ComputeFinalScore(quality, popularity, maintenance *float64) *float64 {
	if quality == nil || popularity == nil || maintenance == nil {
		return nil
	}
	s := *quality*0.30 + *popularity*0.35 + *maintenance*0.35
	return &s
}

// HistoryEntry is one comparison submission, persisted by an external store.
type HistoryEntry struct {
	Packages  []string
	Timestamp int64
}

// HistoryStore persists comparison submissions. MemoryHistory is the
// in-process implementation; durable stores live in the embedding shell.
type HistoryStore interface {
	Append(entry HistoryEntry) error
	Entries() ([]HistoryEntry, error)
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
