package classifier

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
	"github.com/docpilot/docpilot/internal/services/llm"
)

// Classifier determines the page type of fetched documents so downstream
// summarization prompts can adjust their emphasis.
type Classifier struct {
	generation interfaces.GenerationService
	logger     arbor.ILogger
}

// NewClassifier creates a page type classifier backed by the given
// generation service.
func NewClassifier(generation interfaces.GenerationService, logger arbor.ILogger) *Classifier {
	return &Classifier{
		generation: generation,
		logger:     logger,
	}
}

// Classify determines the page type from the title and a content sample.
// Classification failures degrade to unknown rather than failing the
// pipeline.
func (c *Classifier) Classify(ctx context.Context, title, content string) models.PageType {
	response, err := c.generation.Generate(ctx, llm.ClassificationRequest(title, content))
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("title", title).
			Msg("Page classification failed, defaulting to unknown")
		return models.PageTypeUnknown
	}

	pageType := parsePageType(response)
	c.logger.Debug().
		Str("title", title).
		Str("page_type", string(pageType)).
		Msg("Page classified")

	return pageType
}

// parsePageType extracts a valid page type from the model response. The
// first recognized word wins; anything else maps to unknown.
func parsePageType(response string) models.PageType {
	for _, word := range strings.Fields(strings.ToLower(response)) {
		word = strings.Trim(word, ".,:;\"'")
		switch models.PageType(word) {
		case models.PageTypeDocs, models.PageTypeBlog, models.PageTypeAPI,
			models.PageTypeReadme, models.PageTypeUnknown:
			return models.PageType(word)
		}
	}
	return models.PageTypeUnknown
}
