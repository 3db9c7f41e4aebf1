package core

import (
	"reflect"
	"testing"
)

func TestPackageURLs(t *testing.T) {
	tests := []struct {
		name  string
		stats *PackageStats
		want  map[string]string
	}{
		{
			"npm package",
			&PackageStats{
				Name:       "react",
				Ecosystem:  EcosystemNpm,
				Repository: String("https://github.com/facebook/react"),
				Homepage:   String("https://react.dev/"),
			},
			map[string]string{
				"registry":   "https://www.npmjs.com/package/react",
				"purl":       "pkg:npm/react",
				"repository": "https://github.com/facebook/react",
				"homepage":   "https://react.dev/",
			},
		},
		{
			"scoped npm package",
			&PackageStats{Name: "@types/node", Ecosystem: EcosystemNpm},
			map[string]string{
				"registry": "https://www.npmjs.com/package/@types/node",
				"purl":     "pkg:npm/%40types/node",
			},
		},
		{
			"pypi package",
			&PackageStats{Name: "django", Ecosystem: EcosystemPyPI},
			map[string]string{
				"registry": "https://pypi.org/project/django/",
				"purl":     "pkg:pypi/django",
			},
		},
	}

	for _, tt := range tests {
		if got := PackageURLs(tt.stats); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: PackageURLs = %v, want %v", tt.name, got, tt.want)
		}
	}

	if got := PackageURLs(nil); got != nil {
		t.Errorf("PackageURLs(nil) = %v, want nil", got)
	}
}
