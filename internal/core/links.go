package core

import (
	"fmt"
	"strings"
)

// PackageURLs returns the well-known web URLs for a package record. Keys
// are "registry", "purl", "repository" and "homepage"; absent values are
// omitted.
func PackageURLs(stats *PackageStats) map[string]string {
	if stats == nil {
		return nil
	}

	urls := make(map[string]string, 4)

	switch stats.Ecosystem {
	case EcosystemNpm:
		urls["registry"] = "https://www.npmjs.com/package/" + stats.Name
	case EcosystemPyPI:
		urls["registry"] = "https://pypi.org/project/" + stats.Name + "/"
	}

	if stats.Name != "" {
		// Scoped npm names carry their @ percent-encoded in purl form.
		name := strings.ReplaceAll(stats.Name, "@", "%40")
		urls["purl"] = fmt.Sprintf("pkg:%s/%s", stats.Ecosystem, name)
	}

	if stats.Repository != nil && *stats.Repository != "" {
		urls["repository"] = *stats.Repository
	}
	if stats.Homepage != nil && *stats.Homepage != "" {
		urls["homepage"] = *stats.Homepage
	}

	return urls
}
