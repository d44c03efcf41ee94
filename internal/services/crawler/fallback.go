// -----------------------------------------------------------------------
// Link Fallback - Fetch and index linked pages when retrieval is empty
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
	"github.com/docpilot/docpilot/internal/services/segmenter"
	"github.com/docpilot/docpilot/internal/workers"
)

// minFetchedChars is the floor for treating a fetched page as having
// real content worth indexing.
const minFetchedChars = 100

// Fallback implements link following: when a page can't answer a query,
// it scores the page's outbound links against the query, fetches the
// best candidates in parallel, and indexes them under the source role.
type Fallback struct {
	config    common.CrawlerConfig
	extractor *LinkExtractor
	fetcher   interfaces.Fetcher
	segmenter *segmenter.Segmenter
	index     interfaces.IndexService
	logger    arbor.ILogger
}

// NewFallback creates a link-following fallback.
func NewFallback(config common.CrawlerConfig, extractor *LinkExtractor, fetcher interfaces.Fetcher, seg *segmenter.Segmenter, index interfaces.IndexService, logger arbor.ILogger) *Fallback {
	return &Fallback{
		config:    config,
		extractor: extractor,
		fetcher:   fetcher,
		segmenter: seg,
		index:     index,
		logger:    logger,
	}
}

// Follow mines the page for same-origin links relevant to the query,
// fetches the top candidates concurrently, and indexes each fetched page
// with usable content. Per-link failures are logged and skipped; the
// returned pages are those actually indexed. No scoring hits means no
// network calls at all.
func (f *Fallback) Follow(ctx context.Context, pageURL, markdown, query string) ([]models.IndexedPage, error) {
	links := f.extractor.ExtractLinks(markdown, pageURL)
	scored := ScoreLinks(links, query)
	if len(scored) == 0 {
		f.logger.Info().
			Str("page_url", pageURL).
			Str("query", query).
			Msg("No relevant links to follow")
		return nil, nil
	}

	if len(scored) > f.config.MaxPages {
		scored = scored[:f.config.MaxPages]
	}

	f.logger.Info().
		Str("page_url", pageURL).
		Str("query", query).
		Int("candidate_count", len(scored)).
		Msg("Following top-scored links")

	var mu sync.Mutex
	var indexed []models.IndexedPage

	pool := workers.NewPool(f.config.MaxPages, f.logger)
	pool.Start()
	for _, link := range scored {
		link := link
		if err := pool.Submit(func(jobCtx context.Context) error {
			// Honor the caller's context as well as the pool's: a
			// cancelled answering request must not keep fetching.
			if ctx.Err() != nil || jobCtx.Err() != nil {
				return nil
			}
			page, err := f.fetchAndIndex(ctx, link)
			if err != nil {
				// Isolated: one bad link never aborts the others.
				f.logger.Warn().
					Err(err).
					Str("url", link.URL).
					Int("score", link.Score).
					Msg("Fallback link skipped")
				return nil
			}
			if page != nil {
				mu.Lock()
				indexed = append(indexed, *page)
				mu.Unlock()
			}
			return nil
		}); err != nil {
			break
		}
	}
	pool.Wait()

	f.logger.Info().
		Int("indexed_count", len(indexed)).
		Msg("Link fallback complete")

	return indexed, ctx.Err()
}

// fetchAndIndex retrieves one candidate page and indexes its sections
// under the source role. Pages with trivial content are dropped.
func (f *Fallback) fetchAndIndex(ctx context.Context, link models.Link) (*models.IndexedPage, error) {
	page, err := f.fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return nil, err
	}
	if len(page.Markdown) < minFetchedChars {
		f.logger.Debug().
			Str("url", link.URL).
			Int("content_length", len(page.Markdown)).
			Msg("Fetched page content too small, skipping")
		return nil, nil
	}

	sections := f.segmenter.Segment(page.URL, page.Markdown)
	if len(sections) == 0 {
		return nil, nil
	}

	sectionPtrs := make([]*models.Section, 0, len(sections))
	for i := range sections {
		sectionPtrs = append(sectionPtrs, &sections[i])
	}
	if err := f.index.StoreSections(ctx, page.URL, sectionPtrs, nil, models.RoleSource); err != nil {
		return nil, err
	}

	return &models.IndexedPage{URL: page.URL, Title: page.Title}, nil
}
