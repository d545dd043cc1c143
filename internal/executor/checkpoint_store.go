package executor

import (
	"context"

	"github.com/mohammad-safakhou/agentea/internal/store"
)

type checkpointStore interface {
	UpsertCheckpoint(ctx context.Context, cp store.Checkpoint) error
}

// StoreCheckpointManager persists step checkpoints in the key/value store.
type StoreCheckpointManager struct {
	store checkpointStore
}

// NewStoreCheckpointManager constructs a CheckpointManager backed by store.Store.
func NewStoreCheckpointManager(st checkpointStore) *StoreCheckpointManager {
	return &StoreCheckpointManager{store: st}
}

func (m *StoreCheckpointManager) StartRun(ctx context.Context, runID string) error {
	// no-op: progress is tracked per step
	return nil
}

func (m *StoreCheckpointManager) SaveStepStart(ctx context.Context, runID, stepID string, index int) error {
	if m.store == nil {
		return nil
	}
	return m.store.UpsertCheckpoint(ctx, store.Checkpoint{
		RunID:  runID,
		Stage:  stepID,
		Index:  index,
		Status: store.CheckpointStatusDispatched,
	})
}

func (m *StoreCheckpointManager) SaveStepSuccess(ctx context.Context, runID, stepID string, index int, report map[string]any) error {
	return m.save(ctx, runID, stepID, index, store.CheckpointStatusCompleted, report)
}

func (m *StoreCheckpointManager) SaveStepFailure(ctx context.Context, runID, stepID string, index int, report map[string]any) error {
	return m.save(ctx, runID, stepID, index, store.CheckpointStatusFailed, report)
}

func (m *StoreCheckpointManager) save(ctx context.Context, runID, stepID string, index int, status string, report map[string]any) error {
	if m.store == nil {
		return nil
	}
	return m.store.UpsertCheckpoint(ctx, store.Checkpoint{
		RunID:   runID,
		Stage:   stepID,
		Index:   index,
		Status:  status,
		Payload: report,
	})
}

var _ CheckpointManager = (*StoreCheckpointManager)(nil)
