package interfaces

import (
	"context"

	"github.com/docpilot/docpilot/internal/models"
)

// StateStorage persists per-page pipeline checkpoints
type StateStorage interface {
	// SaveState upserts the checkpoint for a page
	SaveState(ctx context.Context, state *models.PipelineState) error

	// GetState returns the checkpoint for a page, nil if none exists
	GetState(ctx context.Context, pageID string) (*models.PipelineState, error)

	// DeleteState removes the checkpoint for a page
	DeleteState(ctx context.Context, pageID string) error

	// ListStates returns all checkpoints, used by the corpus digest
	ListStates(ctx context.Context) ([]*models.PipelineState, error)
}
