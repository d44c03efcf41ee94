package interfaces

import (
	"context"
)

// EmbeddingService generates vector embeddings
type EmbeddingService interface {
	// Generate embeddings for a batch of passage texts, one vector per
	// input in the same order
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)

	// Generate a query embedding (uses a retrieval-query task type, which
	// differs from passage embedding)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Get model information
	ModelName() string
	Dimension() int

	// Check if service is available
	IsAvailable(ctx context.Context) bool
}
