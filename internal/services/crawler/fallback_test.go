package crawler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
	"github.com/docpilot/docpilot/internal/services/segmenter"
)

// fakeFetcher serves canned pages and fails for scripted URLs.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*models.FetchedPage
	failing map[string]bool
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.FetchedPage, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if f.failing[url] {
		return nil, models.ErrFetchFailure
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return nil, models.ErrFetchFailure
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

// recordingIndex counts stores per page URL.
type recordingIndex struct {
	mu     sync.Mutex
	stored map[string]int
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{stored: map[string]int{}}
}

func (r *recordingIndex) StoreSections(ctx context.Context, pageURL string, sections []*models.Section, summaries map[string]string, role models.EmbeddingRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored[pageURL]++
	return nil
}

func (r *recordingIndex) storeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, count := range r.stored {
		total += count
	}
	return total
}

func (r *recordingIndex) Search(ctx context.Context, pageURL, query string, role models.EmbeddingRole, topK int) ([]*models.RetrievedSection, error) {
	return nil, nil
}
func (r *recordingIndex) Delete(ctx context.Context, pageURL string) error          { return nil }
func (r *recordingIndex) Exists(ctx context.Context, pageURL string) (bool, error) { return false, nil }
func (r *recordingIndex) Reindex(ctx context.Context, pageURL string, sections []*models.Section) error {
	return nil
}

func richPage(url, title string) *models.FetchedPage {
	return &models.FetchedPage{
		URL:   url,
		Title: title,
		Markdown: "# " + title + "\n\n" +
			"This linked page carries enough real content to be segmented and indexed, " +
			"covering setup steps, configuration values, and troubleshooting notes in detail.\n",
	}
}

func newTestFallback(fetcher *fakeFetcher, index *recordingIndex) *Fallback {
	cfg := common.NewDefaultConfig()
	logger := common.GetLogger()
	return NewFallback(
		cfg.Crawler,
		NewLinkExtractor(logger),
		fetcher,
		segmenter.NewSegmenter(cfg.Pipeline, logger),
		index,
		logger,
	)
}

const fallbackSource = "https://example.com/docs/setup"

const fallbackMarkdown = "Overview of the project.\n\n" +
	"Follow the [installation guide](/docs/install) to get the tool running.\n" +
	"See the [configuration reference](/docs/configure) for every option.\n" +
	"The rest of this page covers licensing terms, project history, credits, " +
	"community conduct expectations, and acknowledgements of early contributors.\n" +
	"Our [team page](/about/team) has contact details.\n"

func TestFollow_FetchesAndIndexesScoredLinks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.FetchedPage{
		"https://example.com/docs/install":   richPage("https://example.com/docs/install", "Install"),
		"https://example.com/docs/configure": richPage("https://example.com/docs/configure", "Configure"),
	}}
	index := newRecordingIndex()
	fallback := newTestFallback(fetcher, index)

	indexed, err := fallback.Follow(context.Background(), fallbackSource, fallbackMarkdown, "installation configuration")
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	if len(indexed) != 2 {
		t.Fatalf("indexed %d pages, want 2", len(indexed))
	}
	titles := map[string]bool{}
	for _, page := range indexed {
		titles[page.Title] = true
	}
	if !titles["Install"] || !titles["Configure"] {
		t.Errorf("unexpected indexed titles: %v", titles)
	}
	// The unrelated team page scores zero and is never fetched.
	for _, url := range fetcher.fetched {
		if strings.Contains(url, "/about/team") {
			t.Error("zero-score link was fetched")
		}
	}
	if index.stored["https://example.com/docs/install"] != 1 {
		t.Error("install page not indexed exactly once")
	}
}

func TestFollow_FailedFetchIsolated(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]*models.FetchedPage{
			"https://example.com/docs/configure": richPage("https://example.com/docs/configure", "Configure"),
		},
		failing: map[string]bool{"https://example.com/docs/install": true},
	}
	index := newRecordingIndex()
	fallback := newTestFallback(fetcher, index)

	indexed, err := fallback.Follow(context.Background(), fallbackSource, fallbackMarkdown, "installation configuration")
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	if len(indexed) != 1 || indexed[0].Title != "Configure" {
		t.Errorf("expected only the surviving page indexed, got %v", indexed)
	}
}

func TestFollow_NoRelevantLinksSkipsNetwork(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.FetchedPage{}}
	fallback := newTestFallback(fetcher, newRecordingIndex())

	indexed, err := fallback.Follow(context.Background(), fallbackSource, fallbackMarkdown, "zebra migrations")
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if len(indexed) != 0 {
		t.Errorf("expected no pages indexed, got %v", indexed)
	}
	if fetcher.fetchCount() != 0 {
		t.Errorf("expected no network calls, got %d", fetcher.fetchCount())
	}
}

func TestFollow_CancelledContextSkipsFetches(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.FetchedPage{
		"https://example.com/docs/install":   richPage("https://example.com/docs/install", "Install"),
		"https://example.com/docs/configure": richPage("https://example.com/docs/configure", "Configure"),
	}}
	index := newRecordingIndex()
	fallback := newTestFallback(fetcher, index)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	indexed, err := fallback.Follow(ctx, fallbackSource, fallbackMarkdown, "installation configuration")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Follow() error = %v, want context.Canceled", err)
	}
	if len(indexed) != 0 {
		t.Errorf("cancelled follow indexed pages: %v", indexed)
	}
	if fetcher.fetchCount() != 0 {
		t.Errorf("cancelled follow fetched %d pages, want 0", fetcher.fetchCount())
	}
	if index.storeCount() != 0 {
		t.Errorf("cancelled follow stored %d pages, want 0", index.storeCount())
	}
}

func TestFollow_TinyPageNotIndexed(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.FetchedPage{
		"https://example.com/docs/install": {
			URL:      "https://example.com/docs/install",
			Title:    "Install",
			Markdown: "stub",
		},
	}}
	index := newRecordingIndex()
	fallback := newTestFallback(fetcher, index)

	indexed, err := fallback.Follow(context.Background(), fallbackSource, fallbackMarkdown, "installation")
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if len(indexed) != 0 {
		t.Errorf("tiny page should not be indexed, got %v", indexed)
	}
	if index.stored["https://example.com/docs/install"] != 0 {
		t.Error("tiny page was stored")
	}
}
