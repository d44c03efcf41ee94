package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
)

// NoRelevantContent is the terminal empty-result state. It is a defined
// outcome, not an error.
const NoRelevantContent = "no relevant content"

// minRemnantChars is the floor for a truncated tail section. Anything
// shorter is dropped rather than included as a fragment.
const minRemnantChars = 100

// Result is the outcome of one retrieval pass.
type Result struct {
	Sections []*models.RetrievedSection
	Context  string
	// NewPages lists pages the link fallback brought into the index
	// while serving this query.
	NewPages []models.IndexedPage
}

// Empty reports whether retrieval found nothing even after fallback.
func (r *Result) Empty() bool {
	return len(r.Sections) == 0
}

// Engine answers queries against the source-role index, assembling a
// bounded grounding context and falling back to link following when the
// page itself has nothing relevant.
type Engine struct {
	config   common.RetrievalConfig
	index    interfaces.IndexService
	follower interfaces.LinkFollower
	logger   arbor.ILogger
}

// NewEngine creates a retrieval engine. follower may be nil to disable
// the link fallback.
func NewEngine(config common.RetrievalConfig, index interfaces.IndexService, follower interfaces.LinkFollower, logger arbor.ILogger) *Engine {
	return &Engine{
		config:   config,
		index:    index,
		follower: follower,
		logger:   logger,
	}
}

// Retrieve searches the page's source vectors for the query. markdown is
// the page's raw content, used only when the fallback needs to mine
// links from it. An empty result after fallback is returned as a Result
// with no sections, never as an error.
func (e *Engine) Retrieve(ctx context.Context, pageURL, query, markdown string) (*Result, error) {
	sections, err := e.index.Search(ctx, pageURL, query, models.RoleSource, e.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval search failed: %w", err)
	}

	result := &Result{Sections: sections}
	if len(sections) == 0 && e.follower != nil {
		if err := e.retrieveViaFallback(ctx, pageURL, query, markdown, result); err != nil {
			return nil, err
		}
	}

	if result.Empty() {
		e.logger.Info().
			Str("page_url", pageURL).
			Str("query", query).
			Msg("Retrieval found no relevant content")
		return result, nil
	}

	result.Context = e.BuildContext(result.Sections)
	return result, nil
}

// retrieveViaFallback lets the link follower index related pages, then
// re-queries each new page and merges the hits.
func (e *Engine) retrieveViaFallback(ctx context.Context, pageURL, query, markdown string, result *Result) error {
	e.logger.Info().
		Str("page_url", pageURL).
		Str("query", query).
		Msg("No local results, invoking link fallback")

	newPages, err := e.follower.Follow(ctx, pageURL, markdown, query)
	if err != nil {
		return fmt.Errorf("link fallback failed: %w", err)
	}
	result.NewPages = newPages
	if len(newPages) == 0 {
		return nil
	}

	var merged []*models.RetrievedSection
	for _, page := range newPages {
		hits, err := e.index.Search(ctx, page.URL, query, models.RoleSource, e.config.FallbackTopK)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Str("page_url", page.URL).
				Msg("Fallback page search failed, skipping")
			continue
		}
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > e.config.TopK {
		merged = merged[:e.config.TopK]
	}
	result.Sections = merged

	e.logger.Info().
		Int("new_page_count", len(newPages)).
		Int("merged_result_count", len(merged)).
		Msg("Fallback retrieval complete")

	return nil
}

// BuildContext concatenates retrieved sections into a grounding context
// within the token budget. When the budget runs out mid-section, the
// last section is truncated rather than dropped, unless the surviving
// remnant would be too small to be useful.
func (e *Engine) BuildContext(sections []*models.RetrievedSection) string {
	var b strings.Builder
	used := 0

	for _, section := range sections {
		block := fmt.Sprintf("## %s (relevance: %.2f)\n%s\n\n", section.Heading, section.Score, section.Text)
		tokens := common.EstimateTokens(block)

		if used+tokens <= e.config.ContextMaxTokens {
			b.WriteString(block)
			used += tokens
			continue
		}

		remaining := e.config.ContextMaxTokens - used
		if remaining <= 0 {
			break
		}
		truncated := truncateToTokens(section.Text, remaining)
		if len(truncated) < minRemnantChars {
			break
		}
		fmt.Fprintf(&b, "## %s (relevance: %.2f)\n%s\n\n", section.Heading, section.Score, truncated)
		break
	}

	return strings.TrimSpace(b.String())
}

// truncateToTokens cuts text at a word boundary so its estimate fits the
// budget.
func truncateToTokens(text string, budget int) string {
	words := strings.Fields(text)
	keep := int(float64(budget) / 1.3)
	if keep >= len(words) {
		return text
	}
	if keep <= 0 {
		return ""
	}
	return strings.Join(words[:keep], " ")
}
