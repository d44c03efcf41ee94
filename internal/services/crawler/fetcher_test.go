package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	fetcher, err := NewFetcher(common.NewDefaultConfig().Crawler, common.GetLogger())
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	return fetcher
}

func TestNewFetcher_InvalidTimeout(t *testing.T) {
	cfg := common.NewDefaultConfig().Crawler
	cfg.FetchTimeout = "not-a-duration"

	if _, err := NewFetcher(cfg, common.GetLogger()); err == nil {
		t.Fatal("expected error for invalid fetch timeout")
	}
}

func TestFetch_ExtractsMainContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "docpilot") {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(`<html><head><title>Setup Guide</title></head><body>
			<nav>navigation junk</nav>
			<main><h1>Setup</h1><p>Install the tool first.</p></main>
			<footer>footer junk</footer>
			<script>alert("hi")</script>
		</body></html>`))
	}))
	defer server.Close()

	page, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if page.Title != "Setup Guide" {
		t.Errorf("title = %q", page.Title)
	}
	if !strings.Contains(page.Markdown, "# Setup") {
		t.Errorf("heading not converted to markdown: %q", page.Markdown)
	}
	if !strings.Contains(page.Markdown, "Install the tool first.") {
		t.Errorf("main content missing: %q", page.Markdown)
	}
	for _, junk := range []string{"navigation junk", "footer junk", "alert"} {
		if strings.Contains(page.Markdown, junk) {
			t.Errorf("page chrome %q survived extraction", junk)
		}
	}
}

func TestFetch_BodyFallbackWhenNoMain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Bare body content here.</p></body></html>`))
	}))
	defer server.Close()

	page, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(page.Markdown, "Bare body content here.") {
		t.Errorf("body content missing: %q", page.Markdown)
	}
	// No <title>; the URL stands in.
	if page.Title != server.URL {
		t.Errorf("title = %q, want url fallback", page.Title)
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	if !errors.Is(err, models.ErrFetchFailure) {
		t.Errorf("expected ErrFetchFailure, got %v", err)
	}
}

func TestFetch_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	if !errors.Is(err, models.ErrFetchFailure) {
		t.Errorf("expected ErrFetchFailure, got %v", err)
	}
}
