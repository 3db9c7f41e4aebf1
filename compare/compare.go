// Package compare computes cross-package winner comparisons and stable
// multi-criterion ordering over PackageStats records. Everything in this
// package is pure: inputs are never mutated.
package compare

import (
	"fmt"

	"github.com/ExaDev/peek-package/internal/core"
)

// Field names a comparable numeric metric.
type Field string

const (
	FieldFinalScore      Field = "finalScore"
	FieldQuality         Field = "quality"
	FieldPopularity      Field = "popularity"
	FieldMaintenance     Field = "maintenance"
	FieldWeeklyDownloads Field = "weeklyDownloads"
	FieldDependentsCount Field = "dependentsCount"
	FieldStars           Field = "stars"
	FieldForks           Field = "forks"
	FieldOpenIssues      Field = "openIssues"
)

// metric describes one comparison row. OpenIssues is the only metric where
// a lower value wins.
type metric struct {
	name          string
	field         Field
	lowerIsBetter bool
}

var metrics = []metric{
	{"Overall Score", FieldFinalScore, false},
	{"Quality", FieldQuality, false},
	{"Popularity", FieldPopularity, false},
	{"Maintenance", FieldMaintenance, false},
	{"Weekly Downloads", FieldWeeklyDownloads, false},
	{"Dependents", FieldDependentsCount, false},
	{"Stars", FieldStars, false},
	{"Forks", FieldForks, false},
	{"Open Issues", FieldOpenIssues, true},
}

// FieldValue extracts the numeric value of a metric field, nil when absent.
func FieldValue(stats *core.PackageStats, field Field) *float64 {
	if stats == nil {
		return nil
	}
	switch field {
	case FieldFinalScore:
		return stats.FinalScore
	case FieldQuality:
		return stats.Quality
	case FieldPopularity:
		return stats.Popularity
	case FieldMaintenance:
		return stats.Maintenance
	case FieldWeeklyDownloads:
		return intValue(stats.WeeklyDownloads)
	case FieldDependentsCount:
		return intValue(stats.DependentsCount)
	case FieldStars:
		return intValue(stats.Stars)
	case FieldForks:
		return intValue(stats.Forks)
	case FieldOpenIssues:
		return intValue(stats.OpenIssues)
	default:
		return nil
	}
}

func intValue(v *int64) *float64 {
	if v == nil {
		return nil
	}
	return core.Float64(float64(*v))
}

// MetricValue is one package's cell in a comparison row.
type MetricValue struct {
	PackageIndex int
	Value        *float64

	// IsWinner marks every package whose value equals the row's extreme;
	// ties produce multiple winners.
	IsWinner bool

	// PercentDiff is the percentage difference of this package's value
	// relative to the mean of all other packages' values for the metric.
	// Nil when the value is absent or fewer than two packages have one.
	PercentDiff *float64
}

// MetricComparison is one row of the comparison: a metric across all
// packages, indexed in input order.
type MetricComparison struct {
	Name          string
	Field         Field
	LowerIsBetter bool
	Values        []MetricValue
}

// Comparison is the consolidated result of comparing N packages.
type Comparison struct {
	Packages []*core.PackageStats
	Metrics  []MetricComparison
}

// CompareMany compares any number of packages across all metrics. It
// requires at least one package; with exactly one, that package is the sole
// winner of every metric and no percent differences are produced. Partial
// sets (some packages still loading, passed as nil scores) are tolerated.
func CompareMany(pkgs []*core.PackageStats) (*Comparison, error) {
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: at least one package required", core.ErrInvalidInput)
	}

	out := &Comparison{
		Packages: append([]*core.PackageStats(nil), pkgs...),
		Metrics:  make([]MetricComparison, 0, len(metrics)),
	}

	for _, m := range metrics {
		row := MetricComparison{
			Name:          m.name,
			Field:         m.field,
			LowerIsBetter: m.lowerIsBetter,
			Values:        make([]MetricValue, len(pkgs)),
		}

		values := make([]*float64, len(pkgs))
		present := 0
		for i, pkg := range pkgs {
			values[i] = FieldValue(pkg, m.field)
			if values[i] != nil {
				present++
			}
		}

		extreme := extremeOf(values, m.lowerIsBetter)

		for i := range pkgs {
			cell := MetricValue{PackageIndex: i, Value: values[i]}

			if len(pkgs) == 1 {
				cell.IsWinner = true
			} else if values[i] != nil && extreme != nil && *values[i] == *extreme {
				cell.IsWinner = true
			}

			if values[i] != nil && present >= 2 {
				cell.PercentDiff = percentDiff(*values[i], values, i)
			}

			row.Values[i] = cell
		}

		out.Metrics = append(out.Metrics, row)
	}

	return out, nil
}

// extremeOf returns the winning value among the present ones: the maximum,
// or the minimum for lower-is-better metrics.
func extremeOf(values []*float64, lowerIsBetter bool) *float64 {
	var extreme *float64
	for _, v := range values {
		if v == nil {
			continue
		}
		if extreme == nil {
			extreme = v
			continue
		}
		if lowerIsBetter {
			if *v < *extreme {
				extreme = v
			}
		} else if *v > *extreme {
			extreme = v
		}
	}
	return extreme
}

// percentDiff computes value's percentage difference against the mean of
// the other packages' values. Nil when no other package has a value or the
// mean is zero.
func percentDiff(value float64, values []*float64, self int) *float64 {
	var sum float64
	var n int
	for i, v := range values {
		if i == self || v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	if mean == 0 {
		return nil
	}
	return core.Float64((value - mean) / mean * 100)
}
