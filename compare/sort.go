package compare

import (
	"sort"
	"strings"

	"github.com/ExaDev/peek-package/internal/core"
)

// Direction controls sort order for a criterion.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Criterion is one key of a multi-criterion sort.
type Criterion struct {
	Field     Field
	Direction Direction
}

// DefaultDirection is the most useful direction per field; open issues are
// the one metric where fewer is better.
var DefaultDirection = map[Field]Direction{
	FieldFinalScore:      Desc,
	FieldQuality:         Desc,
	FieldPopularity:      Desc,
	FieldMaintenance:     Desc,
	FieldWeeklyDownloads: Desc,
	FieldDependentsCount: Desc,
	FieldStars:           Desc,
	FieldForks:           Desc,
	FieldOpenIssues:      Asc,
}

// Sort orders packages by the given criteria and returns a new slice; the
// input is left untouched. Earlier criteria take precedence, later ones
// break ties, and package name order is the final tiebreaker so equal
// records always come out in the same order. Absent values sort after all
// present values regardless of direction.
func Sort(pkgs []*core.PackageStats, criteria []Criterion) []*core.PackageStats {
	out := append([]*core.PackageStats(nil), pkgs...)

	sort.SliceStable(out, func(i, j int) bool {
		for _, c := range criteria {
			cmp := compareField(out[i], out[j], c)
			if cmp != 0 {
				return cmp < 0
			}
		}
		return strings.Compare(name(out[i]), name(out[j])) < 0
	})

	return out
}

func name(stats *core.PackageStats) string {
	if stats == nil {
		return ""
	}
	return stats.Name
}

// compareField orders two packages under one criterion: negative when a
// sorts before b.
func compareField(a, b *core.PackageStats, c Criterion) int {
	va := FieldValue(a, c.Field)
	vb := FieldValue(b, c.Field)

	// Nulls last, whatever the direction.
	switch {
	case va == nil && vb == nil:
		return 0
	case va == nil:
		return 1
	case vb == nil:
		return -1
	}

	if *va == *vb {
		return 0
	}

	less := *va < *vb
	if c.Direction == Desc {
		less = !less
	}
	if less {
		return -1
	}
	return 1
}
