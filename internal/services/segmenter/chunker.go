package segmenter

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
)

// Chunker splits oversized section content into sentence-aligned chunks
// for fact extraction. Sentences are never split mid-way, and the ordered
// concatenation of chunk texts preserves the section's sentence stream.
type Chunker struct {
	config common.PipelineConfig
	logger arbor.ILogger
}

// NewChunker creates a chunk splitter.
func NewChunker(config common.PipelineConfig, logger arbor.ILogger) *Chunker {
	return &Chunker{
		config: config,
		logger: logger,
	}
}

// Split divides content into chunks within the configured token budget.
// A single sentence over the budget still becomes its own oversized chunk
// rather than being truncated. When the chunk cap is reached, remaining
// sentences fold into the final chunk so no sentence is dropped.
func (c *Chunker) Split(sectionID, content string) []models.Chunk {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return []models.Chunk{}
	}

	var chunks []models.Chunk
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, models.Chunk{
			ParentSectionID: sectionID,
			Index:           len(chunks),
			Text:            strings.Join(current, " "),
			TokenCount:      currentTokens,
		})
		current = nil
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := common.EstimateTokens(sentence)
		if currentTokens > 0 && currentTokens+tokens > c.config.ChunkMaxTokens {
			if len(chunks) == c.config.MaxChunksPerSection-1 {
				// Cap reached. Everything remaining joins the final chunk.
				current = append(current, sentence)
				currentTokens += tokens
				continue
			}
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	if len(chunks) >= c.config.MaxChunksPerSection {
		c.logger.Warn().
			Str("section_id", sectionID).
			Int("chunk_count", len(chunks)).
			Int("max_chunks", c.config.MaxChunksPerSection).
			Msg("Section hit chunk cap, tail folded into final chunk")
	}

	c.logger.Debug().
		Str("section_id", sectionID).
		Int("sentence_count", len(sentences)).
		Int("chunk_count", len(chunks)).
		Msg("Section chunked")

	return chunks
}

// splitSentences breaks text at sentence-ending punctuation followed by
// whitespace, and at line breaks. Line breaks count as boundaries so
// markdown lists and code lines without punctuation still split.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	appendSpan := func(end int) {
		span := strings.TrimSpace(text[start:end])
		if span != "" {
			sentences = append(sentences, span)
		}
		start = end
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && isSpace(text[i+1]) {
				appendSpan(i + 1)
			}
		case '\n':
			appendSpan(i + 1)
		}
	}
	appendSpan(len(text))

	return sentences
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
