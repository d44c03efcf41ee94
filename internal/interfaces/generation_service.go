package interfaces

import (
	"context"
)

// GenerationRequest describes one text generation call. Prompts are
// pre-built by the caller; providers only add transport concerns.
type GenerationRequest struct {
	// System is the system prompt, empty for none
	System string

	// Prompt is the user-turn content
	Prompt string

	// MaxTokens caps the response length, 0 for provider default
	MaxTokens int

	// Temperature controls sampling randomness
	Temperature float32
}

// TokenFunc receives one streamed token. Returning an error cancels the
// stream.
type TokenFunc func(token string) error

// GenerationService defines the interface for text generation operations.
// Implementations wrap cloud providers (Gemini, Claude) and are expected
// to handle rate limit retries internally.
type GenerationService interface {
	// Generate produces a completion for the request.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - req: Prompt, system instruction, and sampling parameters
	//
	// Returns:
	//   - string: Generated text
	//   - error: Error if generation fails after retries
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// GenerateStream produces a completion, delivering tokens to emit as
	// they arrive. The full response is also returned once the stream
	// completes.
	GenerateStream(ctx context.Context, req GenerationRequest, emit TokenFunc) (string, error)

	// HealthCheck verifies the provider is reachable and authenticated.
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations.
	Close() error
}
