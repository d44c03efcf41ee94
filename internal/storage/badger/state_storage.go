package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docpilot/docpilot/internal/interfaces"
	"github.com/docpilot/docpilot/internal/models"
)

// StateStorage implements the StateStorage interface for Badger
type StateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStateStorage creates a new StateStorage instance
func NewStateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StateStorage {
	return &StateStorage{
		db:     db,
		logger: logger,
	}
}

func (s *StateStorage) SaveState(ctx context.Context, state *models.PipelineState) error {
	if state.PageID == "" {
		return fmt.Errorf("pipeline state page ID is required")
	}

	state.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(state.PageID, state); err != nil {
		return fmt.Errorf("failed to save pipeline state: %w", err)
	}
	return nil
}

func (s *StateStorage) GetState(ctx context.Context, pageID string) (*models.PipelineState, error) {
	var state models.PipelineState
	if err := s.db.Store().Get(pageID, &state); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pipeline state: %w", err)
	}
	return &state, nil
}

func (s *StateStorage) DeleteState(ctx context.Context, pageID string) error {
	if err := s.db.Store().Delete(pageID, &models.PipelineState{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete pipeline state: %w", err)
	}
	return nil
}

func (s *StateStorage) ListStates(ctx context.Context) ([]*models.PipelineState, error) {
	var states []models.PipelineState
	if err := s.db.Store().Find(&states, badgerhold.Where("PageID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list pipeline states: %w", err)
	}

	result := make([]*models.PipelineState, len(states))
	for i := range states {
		result[i] = &states[i]
	}
	return result, nil
}
