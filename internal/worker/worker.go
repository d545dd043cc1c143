// Package worker holds the deterministic agents served next to the model
// backed planner: an arithmetic calculator and a numeric data processor.
package worker

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

// Registry names of the worker agents.
const (
	CalculatorName     = "calculator_agent"
	DataProcessingName = "data_processing_agent"
)

// Task names served by the worker agents.
const (
	TaskCalculate   = "calculate"
	TaskProcessData = "process_data"
)

// Latency is the simulated work time of each worker agent.
type Latency struct {
	Calculator     time.Duration
	DataProcessing time.Duration
}

// DefaultLatency is the pacing used when agents.simulated_latency is set.
var DefaultLatency = Latency{Calculator: 500 * time.Millisecond, DataProcessing: 2 * time.Second}

// NewRegistry returns a registry holding both worker agents.
func NewRegistry(lat Latency, opts ...agent.Option) *agent.Registry {
	return agent.NewRegistry(
		NewCalculatorAgent(lat.Calculator, opts...),
		NewDataProcessingAgent(lat.DataProcessing, opts...),
	)
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
