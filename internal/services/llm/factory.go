package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
)

// NewGenerationService creates the generation provider selected by
// llm.default_provider. The Gemini service always backs embeddings, so
// selecting Claude still requires a Gemini API key for the index.
func NewGenerationService(cfg *common.Config, gemini *GeminiService, logger arbor.ILogger) (interfaces.GenerationService, error) {
	logger.Info().Str("provider", string(cfg.LLM.DefaultProvider)).Msg("Initializing generation service")

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderGemini:
		return gemini, nil

	case common.LLMProviderClaude:
		return NewClaudeService(cfg, logger)

	default:
		return nil, fmt.Errorf("invalid LLM provider '%s': must be 'gemini' or 'claude'", cfg.LLM.DefaultProvider)
	}
}
