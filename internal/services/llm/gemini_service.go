package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
)

// GeminiService implements both text generation and embedding using the
// Google genai client. A single rate limiter covers generation and
// embedding calls since they share the same API quota.
type GeminiService struct {
	logger    arbor.ILogger
	client    *genai.Client
	model     string
	embed     common.EmbeddingsConfig
	timeout   time.Duration
	limiter   *rate.Limiter
	retry     *RetryConfig
	available bool
}

// NewGeminiService creates a new Gemini service instance.
//
// The service initialization includes:
//  1. Resolving the API key from config (GEMINI_API_KEY env fallback is
//     applied during config load)
//  2. Parsing timeout and rate limit durations from configuration
//  3. Initializing the genai client against the Gemini API backend
//
// Returns an error on a missing API key, invalid duration strings, or
// client initialization failure.
func NewGeminiService(config *common.Config, logger arbor.ILogger) (*GeminiService, error) {
	if config.Gemini.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	timeout, err := time.ParseDuration(config.Gemini.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini timeout duration '%s': %w", config.Gemini.Timeout, err)
	}

	interval, err := time.ParseDuration(config.Gemini.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini rate limit duration '%s': %w", config.Gemini.RateLimit, err)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		logger:    logger,
		client:    client,
		model:     config.Gemini.Model,
		embed:     config.Embeddings,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		retry:     NewDefaultRetryConfig(),
		available: true,
	}

	logger.Info().
		Str("model", config.Gemini.Model).
		Str("embed_model", config.Embeddings.Model).
		Int("embed_dimension", config.Embeddings.Dimension).
		Dur("timeout", timeout).
		Str("rate_limit", config.Gemini.RateLimit).
		Msg("Gemini service initialized successfully")

	return service, nil
}

// Generate produces a completion for the request, retrying rate limit
// errors with backoff.
func (s *GeminiService) Generate(ctx context.Context, req interfaces.GenerationRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty for generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	var response string
	err := s.withRetry(timeoutCtx, "generate", func() error {
		var genErr error
		response, genErr = s.generateCompletion(timeoutCtx, req)
		return genErr
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("prompt_length", len(req.Prompt)).
			Msg("Generation failed")
		return "", fmt.Errorf("generation failed: %w", err)
	}

	s.logger.Debug().
		Int("prompt_length", len(req.Prompt)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Generation completed")

	return response, nil
}

// GenerateStream produces a completion, delivering text fragments to emit
// as they arrive. Rate limit retries only apply before the first fragment
// is delivered; mid-stream failures are returned to the caller.
func (s *GeminiService) GenerateStream(ctx context.Context, req interfaces.GenerationRequest, emit interfaces.TokenFunc) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty for generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(timeoutCtx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	contents, config := s.buildGenerateCall(req)

	var response strings.Builder
	for resp, err := range s.client.Models.GenerateContentStream(timeoutCtx, s.model, contents, config) {
		if err != nil {
			return response.String(), fmt.Errorf("streaming generation failed: %w", err)
		}
		text := extractText(resp)
		if text == "" {
			continue
		}
		response.WriteString(text)
		if emit != nil {
			if emitErr := emit(text); emitErr != nil {
				return response.String(), emitErr
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from model")
	}

	return response.String(), nil
}

// EmbedPassages generates embeddings for a batch of passage texts. Inputs
// are split into API-sized batches; output order matches input order.
func (s *GeminiService) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty for embedding generation")
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.embed.BatchSize {
		end := start + s.embed.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedBatch(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, fmt.Errorf("embedding batch [%d:%d] failed: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	s.logger.Debug().
		Int("passage_count", len(texts)).
		Int("dimension", s.embed.Dimension).
		Msg("Passage embeddings generated")

	return vectors, nil
}

// EmbedQuery generates a query embedding. Queries use a different task
// type than passages so the model optimizes for retrieval matching.
func (s *GeminiService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty for embedding generation")
	}

	vectors, err := s.embedBatch(ctx, []string{query}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	return vectors[0], nil
}

// ModelName returns the embedding model identifier.
func (s *GeminiService) ModelName() string {
	return s.embed.Model
}

// Dimension returns the configured embedding dimensionality.
func (s *GeminiService) Dimension() int {
	return s.embed.Dimension
}

// IsAvailable reports whether the service can serve embedding requests.
func (s *GeminiService) IsAvailable(ctx context.Context) bool {
	return s.available && s.client != nil
}

// HealthCheck verifies the service is operational with lightweight probes
// against both the generation and embedding models.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.embedBatch(probeCtx, []string{"health check probe"}, "RETRIEVAL_DOCUMENT"); err != nil {
		return fmt.Errorf("embedding model health check failed: %w", err)
	}

	probe := interfaces.GenerationRequest{Prompt: "ping", MaxTokens: 5, Temperature: 0}
	if _, err := s.generateCompletion(probeCtx, probe); err != nil {
		return fmt.Errorf("generation model health check failed: %w", err)
	}

	s.logger.Info().
		Str("model", s.model).
		Str("embed_model", s.embed.Model).
		Msg("Gemini service health check passed")

	return nil
}

// Close releases resources. The genai client does not require explicit
// cleanup beyond clearing the reference.
func (s *GeminiService) Close() error {
	s.logger.Info().Msg("Closing Gemini service")
	s.client = nil
	s.available = false
	return nil
}

// withRetry runs call, retrying rate limit errors per the retry config.
// Non-rate-limit errors fail immediately.
func (s *GeminiService) withRetry(ctx context.Context, operation string, call func() error) error {
	var lastErr error
	for attempt := 0; attempt < s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !IsRateLimitError(lastErr) {
			return lastErr
		}

		delay := s.retry.CalculateBackoff(attempt, ExtractRetryDelay(lastErr))
		s.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Int("max_retries", s.retry.MaxRetries).
			Dur("backoff", delay).
			Msg("Rate limited, backing off before retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("exhausted %d retries: %w", s.retry.MaxRetries, lastErr)
}

// buildGenerateCall translates a request into genai contents and config.
func (s *GeminiService) buildGenerateCall(req interfaces.GenerationRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{genai.NewPartFromText(req.Prompt)}},
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	return contents, config
}

// generateCompletion runs one non-streaming generation call and extracts
// the response text.
func (s *GeminiService) generateCompletion(ctx context.Context, req interfaces.GenerationRequest) (string, error) {
	contents, config := s.buildGenerateCall(req)

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return "", err
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("no response generated from model")
	}

	return text, nil
}

// embedBatch embeds up to one API batch of texts with the given task type,
// retrying rate limit errors.
func (s *GeminiService) embedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	outputDim := int32(s.embed.Dimension)
	config := &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &outputDim,
	}

	var result *genai.EmbedContentResponse
	err := s.withRetry(ctx, "embed", func() error {
		var embedErr error
		result, embedErr = s.client.Models.EmbedContent(ctx, s.embed.Model, contents, config)
		return embedErr
	})
	if err != nil {
		return nil, err
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), got)
	}

	vectors := make([][]float32, 0, len(texts))
	for i, emb := range result.Embeddings {
		if len(emb.Values) != s.embed.Dimension {
			return nil, fmt.Errorf("embedding dimension mismatch at index %d: expected %d, got %d", i, s.embed.Dimension, len(emb.Values))
		}
		vectors = append(vectors, emb.Values)
	}

	return vectors, nil
}

// extractText concatenates text parts from the first candidate that has any.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
