package processor

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
	"github.com/docpilot/docpilot/internal/services/llm"
	"github.com/docpilot/docpilot/internal/services/segmenter"
)

// Processor turns one section into a summary, choosing the strategy by
// section size. Small sections are summarized directly; large sections go
// through chunking, per-chunk fact extraction, and a summary generated
// from the merged facts.
type Processor struct {
	config     common.PipelineConfig
	generation interfaces.GenerationService
	chunker    *segmenter.Chunker
	logger     arbor.ILogger
}

// NewProcessor creates an adaptive section processor.
func NewProcessor(config common.PipelineConfig, generation interfaces.GenerationService, chunker *segmenter.Chunker, logger arbor.ILogger) *Processor {
	return &Processor{
		config:     config,
		generation: generation,
		chunker:    chunker,
		logger:     logger,
	}
}

// Summarize produces the summary for one section. A generation failure
// never aborts the page: the section gets a placeholder summary with the
// Failed flag set, and the caller moves on.
func (p *Processor) Summarize(ctx context.Context, pageType models.PageType, section models.Section) models.SectionSummary {
	result := models.SectionSummary{
		SectionID: section.ID,
		Heading:   section.Heading,
	}

	var summary string
	var err error
	if section.TokenCount > p.config.SmallSectionThreshold {
		summary, err = p.summarizeLarge(ctx, pageType, section)
	} else {
		summary, err = p.summarizeDirect(ctx, pageType, section)
	}

	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("section_id", section.ID).
			Str("heading", section.Heading).
			Msg("Section summary failed, using placeholder")
		result.Summary = placeholderSummary(section.Heading)
		result.Failed = true
		return result
	}

	result.Summary = summary
	return result
}

// SummarizeStream is the streaming variant of Summarize: the final
// summary generation streams its tokens to emit. Fact extraction for
// large sections is not streamed, only the summary call. Cancellation is
// surfaced as an error so the caller can discard the partial summary.
func (p *Processor) SummarizeStream(ctx context.Context, pageType models.PageType, section models.Section, emit interfaces.TokenFunc) (models.SectionSummary, error) {
	result := models.SectionSummary{
		SectionID: section.ID,
		Heading:   section.Heading,
	}

	var summary string
	var err error
	if section.TokenCount > p.config.SmallSectionThreshold {
		summary, err = p.summarizeLargeStream(ctx, pageType, section, emit)
	} else {
		summary, err = p.generation.GenerateStream(ctx, llm.SectionSummaryRequest(pageType, section.Heading, section.Content), emit)
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		p.logger.Warn().
			Err(err).
			Str("section_id", section.ID).
			Str("heading", section.Heading).
			Msg("Streaming section summary failed, using placeholder")
		result.Summary = placeholderSummary(section.Heading)
		result.Failed = true
		return result, nil
	}

	result.Summary = summary
	return result, nil
}

// summarizeLargeStream mirrors summarizeLarge but streams the final
// summary-from-facts call.
func (p *Processor) summarizeLargeStream(ctx context.Context, pageType models.PageType, section models.Section, emit interfaces.TokenFunc) (string, error) {
	chunks := p.chunker.Split(section.ID, section.Content)
	if len(chunks) == 0 {
		return p.generation.GenerateStream(ctx, llm.SectionSummaryRequest(pageType, section.Heading, section.Content), emit)
	}

	merged, err := p.extractFacts(ctx, section.Heading, chunks)
	if err != nil {
		return "", err
	}
	return p.generation.GenerateStream(ctx, llm.SummaryFromFactsRequest(pageType, section.Heading, merged), emit)
}

// summarizeDirect handles the small-section path with one generation call.
func (p *Processor) summarizeDirect(ctx context.Context, pageType models.PageType, section models.Section) (string, error) {
	p.logger.Debug().
		Str("section_id", section.ID).
		Int("token_count", section.TokenCount).
		Msg("Summarizing section directly")

	return p.generation.Generate(ctx, llm.SectionSummaryRequest(pageType, section.Heading, section.Content))
}

// summarizeLarge handles the hierarchical path: chunk, extract facts per
// chunk concurrently, merge facts in chunk order, then summarize from the
// merged facts rather than the raw text.
func (p *Processor) summarizeLarge(ctx context.Context, pageType models.PageType, section models.Section) (string, error) {
	chunks := p.chunker.Split(section.ID, section.Content)
	if len(chunks) == 0 {
		return p.summarizeDirect(ctx, pageType, section)
	}

	p.logger.Debug().
		Str("section_id", section.ID).
		Int("token_count", section.TokenCount).
		Int("chunk_count", len(chunks)).
		Msg("Summarizing section hierarchically")

	merged, err := p.extractFacts(ctx, section.Heading, chunks)
	if err != nil {
		return "", err
	}
	return p.generation.Generate(ctx, llm.SummaryFromFactsRequest(pageType, section.Heading, merged))
}

// extractFacts runs per-chunk fact extraction concurrently and merges the
// fact blocks in chunk order. A failed chunk is skipped, not fatal: the
// summary works from the facts that survived. Only total failure, or
// cancellation, is an error.
func (p *Processor) extractFacts(ctx context.Context, heading string, chunks []models.Chunk) (string, error) {
	facts := make([]string, len(chunks))
	var failed atomic.Int32

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.config.FactWorkers)

	for _, chunk := range chunks {
		group.Go(func() error {
			extracted, err := p.generation.Generate(groupCtx, llm.FactExtractionRequest(heading, chunk.Text))
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				failed.Add(1)
				p.logger.Warn().
					Err(err).
					Str("heading", heading).
					Int("chunk_index", chunk.Index).
					Msg("Chunk fact extraction failed, skipping chunk")
				return nil
			}
			facts[chunk.Index] = extracted
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}
	if int(failed.Load()) == len(chunks) {
		return "", fmt.Errorf("fact extraction failed for all %d chunks", len(chunks))
	}

	kept := make([]string, 0, len(facts))
	for _, block := range facts {
		if block != "" {
			kept = append(kept, block)
		}
	}
	return strings.Join(kept, "\n"), nil
}

// placeholderSummary is the degraded output for a failed section.
func placeholderSummary(heading string) string {
	return fmt.Sprintf("[Summary unavailable for section %q]", heading)
}
