package processor

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
	"github.com/docpilot/docpilot/internal/services/llm"
)

// summaryDelimiter separates section summaries in the deterministic
// fallback output.
const summaryDelimiter = "\n\n---\n\n"

// Synthesizer combines section summaries into a page-level digest.
type Synthesizer struct {
	generation interfaces.GenerationService
	logger     arbor.ILogger
}

// NewSynthesizer creates a page synthesizer.
func NewSynthesizer(generation interfaces.GenerationService, logger arbor.ILogger) *Synthesizer {
	return &Synthesizer{
		generation: generation,
		logger:     logger,
	}
}

// Synthesize produces the page summary from the ordered section
// summaries. A single-section page returns that summary verbatim without
// a generation call. On generation failure the summaries are concatenated
// with a visible delimiter, which always succeeds.
func (s *Synthesizer) Synthesize(ctx context.Context, pageType models.PageType, title string, summaries []models.SectionSummary) string {
	if len(summaries) == 0 {
		return ""
	}
	if len(summaries) == 1 {
		return summaries[0].Summary
	}

	summary, err := s.generation.Generate(ctx, llm.SynthesisRequest(pageType, title, summaries))
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("title", title).
			Int("section_count", len(summaries)).
			Msg("Page synthesis failed, falling back to concatenation")
		return concatenateSummaries(summaries)
	}

	return summary
}

// SynthesizeStream is the streaming variant, delivering synthesis tokens
// to emit. The fallback concatenation is emitted as a single fragment.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, pageType models.PageType, title string, summaries []models.SectionSummary, emit interfaces.TokenFunc) (string, error) {
	if len(summaries) == 0 {
		return "", nil
	}
	if len(summaries) == 1 {
		only := summaries[0].Summary
		if emit != nil {
			if err := emit(only); err != nil {
				return "", err
			}
		}
		return only, nil
	}

	summary, err := s.generation.GenerateStream(ctx, llm.SynthesisRequest(pageType, title, summaries), emit)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn().
			Err(err).
			Str("title", title).
			Msg("Streaming page synthesis failed, falling back to concatenation")
		fallback := concatenateSummaries(summaries)
		if emit != nil {
			if emitErr := emit(fallback); emitErr != nil {
				return "", emitErr
			}
		}
		return fallback, nil
	}

	return summary, nil
}

func concatenateSummaries(summaries []models.SectionSummary) string {
	parts := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		parts = append(parts, summary.Summary)
	}
	return strings.Join(parts, summaryDelimiter)
}
