package npms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ExaDev/peek-package/internal/core"
)

const reactResponse = `{
	"analyzedAt": "2024-05-01T00:00:00.000Z",
	"collected": {
		"metadata": {
			"name": "react",
			"version": "18.3.1",
			"description": "React is a JavaScript library for building user interfaces.",
			"keywords": ["react"],
			"license": "MIT",
			"links": {
				"npm": "https://www.npmjs.com/package/react",
				"homepage": "https://react.dev/",
				"repository": "https://github.com/facebook/react"
			},
			"maintainers": [{"username": "react-bot", "email": "react-core@meta.com"}],
			"dependencies": {"loose-envify": "^1.1.0"}
		},
		"npm": {
			"downloads": [
				{"from": "2024-04-24", "to": "2024-05-01", "count": 24000000}
			],
			"dependentsCount": 120000,
			"starsCount": 3500
		},
		"github": {
			"starsCount": 220000,
			"forksCount": 45000,
			"issues": {"count": 12000, "openCount": 900}
		}
	},
	"score": {
		"final": 0.92,
		"detail": {"quality": 0.95, "popularity": 0.89, "maintenance": 0.93}
	}
}`

func TestPackage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/package/react" {
			t.Errorf("path = %q, want /v2/package/react", r.URL.Path)
		}
		_, _ = w.Write([]byte(reactResponse))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	resp, err := c.Package(context.Background(), "react")
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}

	if resp.Collected.Metadata.Name != "react" {
		t.Errorf("name = %q, want react", resp.Collected.Metadata.Name)
	}
	if resp.Collected.Metadata.License != "MIT" {
		t.Errorf("license = %q, want MIT", resp.Collected.Metadata.License)
	}
	if got := resp.Collected.Metadata.Links.Repository; got != "https://github.com/facebook/react" {
		t.Errorf("repository = %q", got)
	}
	if len(resp.Collected.Npm.Downloads) != 1 || resp.Collected.Npm.Downloads[0].Count != 24000000 {
		t.Errorf("downloads = %+v", resp.Collected.Npm.Downloads)
	}
	if resp.Collected.GitHub.StarsCount == nil || *resp.Collected.GitHub.StarsCount != 220000 {
		t.Errorf("github stars = %v", resp.Collected.GitHub.StarsCount)
	}
	if resp.Score.Final == nil || *resp.Score.Final != 0.92 {
		t.Errorf("final score = %v", resp.Score.Final)
	}
	if resp.Score.Detail.Quality == nil || *resp.Score.Detail.Quality != 0.95 {
		t.Errorf("quality = %v", resp.Score.Detail.Quality)
	}
}

func TestPackageNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(server.URL, nil)
	_, err := c.Package(context.Background(), "does-not-exist-xyz")

	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Package = %v, want *core.NotFoundError", err)
	}
	if nf.Name != "does-not-exist-xyz" {
		t.Errorf("Name = %q", nf.Name)
	}
	if !errors.Is(err, core.ErrNotFound) {
		t.Error("error should unwrap to ErrNotFound")
	}
}

func TestPackageEmptyName(t *testing.T) {
	c := New("http://unused", nil)
	_, err := c.Package(context.Background(), "")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("Package = %v, want ErrInvalidInput", err)
	}
}

func TestPackageMulti(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/package/mget" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		_, _ = w.Write([]byte(`{
			"react": {"collected": {"metadata": {"name": "react", "version": "18.3.1"}}},
			"vue": {"collected": {"metadata": {"name": "vue", "version": "3.4.27"}}}
		}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	out, err := c.PackageMulti(context.Background(), []string{"react", "vue"})
	if err != nil {
		t.Fatalf("PackageMulti failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out["vue"].Collected.Metadata.Version != "3.4.27" {
		t.Errorf("vue version = %q", out["vue"].Collected.Metadata.Version)
	}
}

func TestSuggestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/search/suggestions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "reac" {
			t.Errorf("q = %q, want reac", q)
		}
		_, _ = w.Write([]byte(`[
			{"package": {"name": "react", "version": "18.3.1", "description": "React"}, "score": {"final": 0.92}, "searchScore": 100000},
			{"package": {"name": "react-dom", "version": "18.3.1"}, "score": {"final": 0.9}, "searchScore": 9000}
		]`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	out, err := c.Suggestions(context.Background(), "reac")
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Package.Name != "react" {
		t.Errorf("first suggestion = %q", out[0].Package.Name)
	}
	if out[0].Score.Final == nil || *out[0].Score.Final != 0.92 {
		t.Errorf("score = %v", out[0].Score.Final)
	}
}

func TestSuggestionsShortQuery(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	for _, q := range []string{"", "r", " r "} {
		out, err := c.Suggestions(context.Background(), q)
		if err != nil {
			t.Fatalf("Suggestions(%q) failed: %v", q, err)
		}
		if out != nil {
			t.Errorf("Suggestions(%q) = %v, want nil", q, out)
		}
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}
