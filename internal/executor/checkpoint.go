package executor

import "context"

// CheckpointManager records step progress of a run for later inspection.
type CheckpointManager interface {
	StartRun(ctx context.Context, runID string) error
	SaveStepStart(ctx context.Context, runID, stepID string, index int) error
	SaveStepSuccess(ctx context.Context, runID, stepID string, index int, report map[string]any) error
	SaveStepFailure(ctx context.Context, runID, stepID string, index int, report map[string]any) error
}

// NoopCheckpointManager is a default implementation that records nothing.
type NoopCheckpointManager struct{}

// NewNoopCheckpointManager returns a checkpoint manager that does nothing.
func NewNoopCheckpointManager() *NoopCheckpointManager { return &NoopCheckpointManager{} }

func (NoopCheckpointManager) StartRun(ctx context.Context, runID string) error { return nil }
func (NoopCheckpointManager) SaveStepStart(ctx context.Context, runID, stepID string, index int) error {
	return nil
}
func (NoopCheckpointManager) SaveStepSuccess(ctx context.Context, runID, stepID string, index int, report map[string]any) error {
	return nil
}
func (NoopCheckpointManager) SaveStepFailure(ctx context.Context, runID, stepID string, index int, report map[string]any) error {
	return nil
}
