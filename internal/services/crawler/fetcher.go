// -----------------------------------------------------------------------
// Page Fetcher - HTTP retrieval with main-content extraction
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
)

// strippedSelectors are page chrome elements removed before content
// extraction.
var strippedSelectors = []string{"script", "style", "noscript", "nav", "header", "footer", "aside", "iframe", "form"}

// Fetcher retrieves pages over HTTP and extracts their main content as
// markdown.
type Fetcher struct {
	config    common.CrawlerConfig
	client    *http.Client
	converter *md.Converter
	logger    arbor.ILogger
}

// NewFetcher creates a page fetcher with the configured timeout and
// body size limit. Returns an error on an invalid timeout duration
// string.
func NewFetcher(config common.CrawlerConfig, logger arbor.ILogger) (*Fetcher, error) {
	timeout, err := time.ParseDuration(config.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid crawler fetch timeout duration '%s': %w", config.FetchTimeout, err)
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: timeout,
		},
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}, nil
}

// Fetch retrieves the page and returns its title and main content as
// markdown. Failures wrap models.ErrFetchFailure so callers can isolate
// per-link errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*models.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request for %s: %v", models.ErrFetchFailure, pageURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrFetchFailure, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", models.ErrFetchFailure, pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.config.MaxBodySize)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %v", models.ErrFetchFailure, pageURL, err)
	}

	title, markdown, err := f.extractContent(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: extracting content of %s: %v", models.ErrFetchFailure, pageURL, err)
	}
	if title == "" {
		title = pageURL
	}

	f.logger.Debug().
		Str("url", pageURL).
		Str("title", title).
		Int("markdown_length", len(markdown)).
		Msg("Page fetched")

	return &models.FetchedPage{
		URL:      common.NormalizeURL(pageURL),
		Title:    title,
		Markdown: markdown,
	}, nil
}

// extractContent strips page chrome, prefers the main/article region
// when present, and converts the result to markdown.
func (f *Fetcher) extractContent(html string) (title, markdown string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	for _, selector := range strippedSelectors {
		doc.Find(selector).Remove()
	}

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}

	contentHTML, err := goquery.OuterHtml(content)
	if err != nil {
		return title, "", err
	}

	markdown, err = f.converter.ConvertString(contentHTML)
	if err != nil {
		return title, "", err
	}

	return title, strings.TrimSpace(markdown), nil
}
