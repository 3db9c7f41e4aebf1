package pypiindex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

const popularJSON = `{
	"rows": [
		{"project": "boto3", "download_count": 1200000000},
		{"project": "requests", "download_count": 900000000},
		{"project": "django", "download_count": 80000000},
		{"project": "flask", "download_count": 70000000}
	]
}`

const fullJSON = `{
	"meta": {"api_version": "1.0"},
	"projects": [
		{"name": "boto3"},
		{"name": "requests"},
		{"name": "django"},
		{"name": "django-rest-framework"},
		{"name": "flask"},
		{"name": "fastapi"},
		{"name": "numpy"}
	]
}`

func testCorpus(t *testing.T, fullStatus int) (*Corpus, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/popular", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(popularJSON))
	})
	mux.HandleFunc("/full", func(w http.ResponseWriter, r *http.Request) {
		if fullStatus != http.StatusOK {
			w.WriteHeader(fullStatus)
			return
		}
		_, _ = w.Write([]byte(fullJSON))
	})
	server := httptest.NewServer(mux)
	c := NewClient(nil).WithURLs(server.URL+"/full", server.URL+"/popular")
	return NewCorpus(c, zerolog.Nop()), server
}

func TestLoadPopularThenFull(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusOK)
	defer server.Close()

	if err := corpus.LoadPopular(context.Background()); err != nil {
		t.Fatalf("LoadPopular failed: %v", err)
	}
	if corpus.Full() {
		t.Error("Full() = true after popular load")
	}
	if corpus.Len() != 4 {
		t.Errorf("Len = %d, want 4", corpus.Len())
	}

	if err := corpus.LoadFull(context.Background()); err != nil {
		t.Fatalf("LoadFull failed: %v", err)
	}
	if !corpus.Full() {
		t.Error("Full() = false after full load")
	}
	if corpus.Len() != 7 {
		t.Errorf("Len = %d, want 7", corpus.Len())
	}

	// Download counts from the popular dataset survive the upgrade.
	if count, ok := corpus.Downloads("django"); !ok || count != 80000000 {
		t.Errorf("Downloads(django) = %d, %v", count, ok)
	}
}

func TestPopularFallbackWhenFullFails(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusServiceUnavailable)
	defer server.Close()

	if err := corpus.LoadPopular(context.Background()); err != nil {
		t.Fatalf("LoadPopular failed: %v", err)
	}
	if err := corpus.LoadFull(context.Background()); err == nil {
		t.Fatal("LoadFull should have failed")
	}

	// Popular dataset still answers searches.
	if corpus.Full() {
		t.Error("Full() = true after failed full load")
	}
	matches := corpus.Search("requests", 10)
	if len(matches) == 0 || matches[0].Name != "requests" {
		t.Fatalf("Search(requests) = %+v", matches)
	}
}

func TestPopularNeverDowngradesFull(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusOK)
	defer server.Close()

	if err := corpus.LoadFull(context.Background()); err != nil {
		t.Fatalf("LoadFull failed: %v", err)
	}
	if err := corpus.LoadPopular(context.Background()); err != nil {
		t.Fatalf("LoadPopular failed: %v", err)
	}

	if !corpus.Full() {
		t.Error("Full() = false, popular load downgraded the corpus")
	}
	if corpus.Len() != 7 {
		t.Errorf("Len = %d, want 7", corpus.Len())
	}
}

func TestSearchTolerantOfDroppedLetters(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusOK)
	defer server.Close()

	if err := corpus.LoadFull(context.Background()); err != nil {
		t.Fatalf("LoadFull failed: %v", err)
	}

	matches := corpus.Search("djngo", 5)
	if len(matches) == 0 {
		t.Fatal("no matches for djngo")
	}
	if matches[0].Name != "django" {
		t.Errorf("best match = %q, want django", matches[0].Name)
	}
}

func TestSearchCaseFolded(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusOK)
	defer server.Close()

	if err := corpus.LoadFull(context.Background()); err != nil {
		t.Fatalf("LoadFull failed: %v", err)
	}

	matches := corpus.Search("FLASK", 5)
	if len(matches) == 0 || matches[0].Name != "flask" {
		t.Fatalf("Search(FLASK) = %+v", matches)
	}
}

func TestSearchMinQueryLength(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusOK)
	defer server.Close()

	if err := corpus.LoadFull(context.Background()); err != nil {
		t.Fatalf("LoadFull failed: %v", err)
	}

	for _, q := range []string{"", "d", " d "} {
		if matches := corpus.Search(q, 5); matches != nil {
			t.Errorf("Search(%q) = %+v, want nil", q, matches)
		}
	}
}

func TestSearchLimit(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusOK)
	defer server.Close()

	if err := corpus.LoadFull(context.Background()); err != nil {
		t.Fatalf("LoadFull failed: %v", err)
	}

	matches := corpus.Search("django", 1)
	if len(matches) != 1 {
		t.Errorf("len = %d, want 1", len(matches))
	}
}

func TestSearchAttachesDownloads(t *testing.T) {
	corpus, server := testCorpus(t, http.StatusOK)
	defer server.Close()

	if err := corpus.LoadPopular(context.Background()); err != nil {
		t.Fatalf("LoadPopular failed: %v", err)
	}

	matches := corpus.Search("boto3", 5)
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	if matches[0].Downloads == nil || *matches[0].Downloads != 1200000000 {
		t.Errorf("downloads = %v", matches[0].Downloads)
	}
}
