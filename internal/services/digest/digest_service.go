package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
	"github.com/docpilot/docpilot/internal/services/segmenter"
)

// DigestURL is the well-known pseudo-URL of the corpus digest document.
// The digest is stored and indexed like any other page so questions
// about the corpus itself can be answered via retrieval.
const DigestURL = "docpilot://corpus-digest"

// Service generates and maintains the corpus digest document: a
// queryable index of what pages have been summarized and indexed.
type Service struct {
	states    interfaces.StateStorage
	pages     interfaces.PageStorage
	index     interfaces.IndexService
	segmenter *segmenter.Segmenter
	logger    arbor.ILogger
}

// NewService creates a corpus digest service.
func NewService(
	states interfaces.StateStorage,
	pages interfaces.PageStorage,
	index interfaces.IndexService,
	seg *segmenter.Segmenter,
	logger arbor.ILogger,
) *Service {
	return &Service{
		states:    states,
		pages:     pages,
		index:     index,
		segmenter: seg,
		logger:    logger,
	}
}

// GenerateDigestDocument rebuilds the corpus digest from current state
// and reindexes it under the source role.
func (s *Service) GenerateDigestDocument(ctx context.Context) error {
	s.logger.Info().Msg("Generating corpus digest document")

	states, err := s.states.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pipeline states: %w", err)
	}
	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}

	content := s.buildDigest(states, pages)

	now := time.Now().UTC()
	digestPage := &models.Page{
		ID:       common.PageNamespace(DigestURL),
		URL:      DigestURL,
		Title:    "Corpus Digest - Indexed Pages and Statistics",
		PageType: models.PageTypeUnknown,
		Content:  content,
	}
	if err := s.pages.SavePage(ctx, digestPage); err != nil {
		return fmt.Errorf("failed to save digest page: %w", err)
	}

	sections := s.segmenter.Segment(DigestURL, content)
	sectionPtrs := make([]*models.Section, 0, len(sections))
	for i := range sections {
		sectionPtrs = append(sectionPtrs, &sections[i])
	}
	if err := s.index.Reindex(ctx, DigestURL, sectionPtrs); err != nil {
		return fmt.Errorf("failed to index digest page: %w", err)
	}

	s.logger.Info().
		Int("page_count", len(pages)).
		Int("state_count", len(states)).
		Str("generated_at", now.Format(time.RFC3339)).
		Msg("Corpus digest document updated")

	return nil
}

// buildDigest renders the digest markdown from the stored corpus.
func (s *Service) buildDigest(states []*models.PipelineState, pages []*models.Page) string {
	completed, failed, inFlight := 0, 0, 0
	summaryByPage := make(map[string]*models.PipelineState, len(states))
	for _, state := range states {
		summaryByPage[state.PageID] = state
		switch state.Stage {
		case models.StageComplete:
			completed++
		case models.StageFailed:
			failed++
		default:
			inFlight++
		}
	}

	byType := make(map[models.PageType]int)
	for _, page := range pages {
		if page.URL == DigestURL {
			continue
		}
		byType[page.PageType]++
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Title < pages[j].Title })

	var b strings.Builder
	b.WriteString("# Corpus Digest\n\n")
	fmt.Fprintf(&b, "Generated %s. This document describes the pages currently stored "+
		"and indexed, and is itself queryable.\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("# Statistics\n\n")
	fmt.Fprintf(&b, "- Pages stored: %d\n", countRealPages(pages))
	fmt.Fprintf(&b, "- Summarization runs completed: %d\n", completed)
	fmt.Fprintf(&b, "- Summarization runs failed: %d\n", failed)
	fmt.Fprintf(&b, "- Summarization runs in flight: %d\n", inFlight)
	for _, pageType := range []models.PageType{
		models.PageTypeDocs, models.PageTypeAPI, models.PageTypeBlog,
		models.PageTypeReadme, models.PageTypeUnknown,
	} {
		if count := byType[pageType]; count > 0 {
			fmt.Fprintf(&b, "- %s pages: %d\n", pageType, count)
		}
	}
	b.WriteString("\n")

	b.WriteString("# Indexed Pages\n\n")
	if countRealPages(pages) == 0 {
		b.WriteString("No pages have been summarized yet.\n")
	}
	for _, page := range pages {
		if page.URL == DigestURL {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s) - %s", page.Title, page.PageType, page.URL)
		if state, ok := summaryByPage[page.ID]; ok && state.Stage == models.StageComplete {
			fmt.Fprintf(&b, ", %d sections summarized", state.SectionCount)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func countRealPages(pages []*models.Page) int {
	count := 0
	for _, page := range pages {
		if page.URL != DigestURL {
			count++
		}
	}
	return count
}
