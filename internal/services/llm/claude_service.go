package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/interfaces"
)

// ClaudeService implements text generation using the Anthropic API.
// Embeddings are not available through this provider.
type ClaudeService struct {
	config  common.ClaudeConfig
	logger  arbor.ILogger
	client  anthropic.Client
	timeout time.Duration
	limiter *rate.Limiter
	retry   *RetryConfig
	closed  bool
}

// NewClaudeService creates a new Claude service instance.
//
// The service initialization includes:
//  1. Resolving the API key from config (ANTHROPIC_API_KEY env fallback is
//     applied during config load)
//  2. Parsing timeout and rate limit durations from configuration
//  3. Initializing the Anthropic client
//
// Returns an error on a missing API key or invalid duration strings.
func NewClaudeService(config *common.Config, logger arbor.ILogger) (*ClaudeService, error) {
	if config.Claude.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	timeout, err := time.ParseDuration(config.Claude.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid claude timeout duration '%s': %w", config.Claude.Timeout, err)
	}

	interval, err := time.ParseDuration(config.Claude.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid claude rate limit duration '%s': %w", config.Claude.RateLimit, err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.Claude.APIKey),
	)

	service := &ClaudeService{
		config:  config.Claude,
		logger:  logger,
		client:  client,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		retry:   NewDefaultRetryConfig(),
	}

	logger.Info().
		Str("model", config.Claude.Model).
		Dur("timeout", timeout).
		Str("rate_limit", config.Claude.RateLimit).
		Int("max_tokens", config.Claude.MaxTokens).
		Msg("Claude service initialized successfully")

	return service, nil
}

// Generate produces a completion for the request, retrying rate limit
// errors with backoff.
func (s *ClaudeService) Generate(ctx context.Context, req interfaces.GenerationRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty for generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	var response string
	var lastErr error
	for attempt := 0; attempt < s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(timeoutCtx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}

		response, lastErr = s.generateCompletion(timeoutCtx, req)
		if lastErr == nil {
			s.logger.Debug().
				Int("prompt_length", len(req.Prompt)).
				Int("response_length", len(response)).
				Dur("duration", time.Since(startTime)).
				Msg("Claude generation completed")
			return response, nil
		}
		if !IsRateLimitError(lastErr) {
			break
		}

		delay := s.retry.CalculateBackoff(attempt, ExtractRetryDelay(lastErr))
		s.logger.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", s.retry.MaxRetries).
			Dur("backoff", delay).
			Msg("Claude rate limited, backing off before retry")

		select {
		case <-timeoutCtx.Done():
			return "", timeoutCtx.Err()
		case <-time.After(delay):
		}
	}

	s.logger.Error().
		Err(lastErr).
		Int("prompt_length", len(req.Prompt)).
		Msg("Claude generation failed")
	return "", fmt.Errorf("generation failed: %w", lastErr)
}

// GenerateStream produces a completion, delivering text deltas to emit as
// they arrive.
func (s *ClaudeService) GenerateStream(ctx context.Context, req interfaces.GenerationRequest, emit interfaces.TokenFunc) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty for generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(timeoutCtx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	stream := s.client.Messages.NewStreaming(timeoutCtx, s.buildParams(req))

	var response strings.Builder
	for stream.Next() {
		event := stream.Current()
		deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta)
		if !ok || textDelta.Text == "" {
			continue
		}
		response.WriteString(textDelta.Text)
		if emit != nil {
			if emitErr := emit(textDelta.Text); emitErr != nil {
				return response.String(), emitErr
			}
		}
	}
	if err := stream.Err(); err != nil {
		return response.String(), fmt.Errorf("streaming generation failed: %w", err)
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return response.String(), nil
}

// HealthCheck verifies the Claude API is reachable with a minimal probe.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("Claude client is closed")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	probe := interfaces.GenerationRequest{Prompt: "ping", MaxTokens: 5}
	response, err := s.generateCompletion(probeCtx, probe)
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}

	s.logger.Debug().
		Str("model", s.config.Model).
		Msg("Claude service health check passed")

	return nil
}

// Close releases resources. The Anthropic client does not require
// explicit cleanup.
func (s *ClaudeService) Close() error {
	s.logger.Info().Msg("Closing Claude service")
	s.closed = true
	return nil
}

// buildParams translates a request into Anthropic message parameters.
func (s *ClaudeService) buildParams(req interfaces.GenerationRequest) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}
	return params
}

// generateCompletion runs one non-streaming message call and extracts the
// response text.
func (s *ClaudeService) generateCompletion(ctx context.Context, req interfaces.GenerationRequest) (string, error) {
	resp, err := s.client.Messages.New(ctx, s.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return response.String(), nil
}
