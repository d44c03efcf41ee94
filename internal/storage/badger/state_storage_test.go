package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
)

func TestStateStorage_SaveAndGet(t *testing.T) {
	db := newTestDB(t)
	storage := NewStateStorage(db, common.GetLogger())
	ctx := context.Background()

	state := &models.PipelineState{
		PageID: "page1",
		RunID:  "run_abc",
		URL:    "https://example.com/docs",
		Stage:  models.StageSegment,
	}
	require.NoError(t, storage.SaveState(ctx, state))

	got, err := storage.GetState(ctx, "page1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, models.StageSegment, got.Stage)
	require.False(t, got.UpdatedAt.IsZero())

	// Advancing the stage overwrites the checkpoint
	state.Stage = models.StageComplete
	require.NoError(t, storage.SaveState(ctx, state))

	got, err = storage.GetState(ctx, "page1")
	require.NoError(t, err)
	require.Equal(t, models.StageComplete, got.Stage)
}

func TestStateStorage_GetMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	storage := NewStateStorage(db, common.GetLogger())

	got, err := storage.GetState(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStateStorage_DeleteAndList(t *testing.T) {
	db := newTestDB(t)
	storage := NewStateStorage(db, common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.SaveState(ctx, &models.PipelineState{PageID: "a", Stage: models.StageComplete}))
	require.NoError(t, storage.SaveState(ctx, &models.PipelineState{PageID: "b", Stage: models.StageComplete}))

	states, err := storage.ListStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)

	require.NoError(t, storage.DeleteState(ctx, "a"))
	require.NoError(t, storage.DeleteState(ctx, "a")) // Deleting twice is not an error

	states, err = storage.ListStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
}
