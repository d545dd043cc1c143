package store

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Checkpoint statuses persisted for plan steps.
const (
	CheckpointStatusDispatched = "dispatched"
	CheckpointStatusCompleted  = "completed"
	CheckpointStatusFailed     = "failed"
)

const checkpointPrefix = "checkpoint:"

// Checkpoint captures durable progress for a run stage.
type Checkpoint struct {
	RunID     string         `json:"run_id"`
	Stage     string         `json:"stage"`
	Index     int            `json:"index"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CheckpointKey is the key a checkpoint is stored under.
func CheckpointKey(runID, stage string) string {
	return checkpointPrefix + runID + ":" + stage
}

// UpsertCheckpoint persists checkpoint progress for a run stage.
func (s *Store) UpsertCheckpoint(ctx context.Context, cp Checkpoint) error {
	if cp.RunID == "" || cp.Stage == "" {
		return fmt.Errorf("run_id and stage are required")
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	return s.Put(ctx, CheckpointKey(cp.RunID, cp.Stage), cp)
}

// GetCheckpoint retrieves a checkpoint for a run/stage. The bool indicates whether a record was found.
func (s *Store) GetCheckpoint(ctx context.Context, runID, stage string) (Checkpoint, bool, error) {
	var cp Checkpoint
	ok, err := s.Get(ctx, CheckpointKey(runID, stage), &cp)
	if err != nil || !ok {
		return Checkpoint{}, ok, err
	}
	return cp, true, nil
}

// ListCheckpoints returns all checkpoints of a run ordered by step index.
func (s *Store) ListCheckpoints(ctx context.Context, runID string) ([]Checkpoint, error) {
	items, err := s.List(ctx, checkpointPrefix+runID+":", 0)
	if err != nil {
		return nil, err
	}
	out := make([]Checkpoint, 0, len(items))
	for _, it := range items {
		var cp Checkpoint
		if err := it.Decode(&cp); err != nil {
			return nil, fmt.Errorf("decode checkpoint %s: %w", it.Key, err)
		}
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
