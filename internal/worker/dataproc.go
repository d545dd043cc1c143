package worker

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

// DataProcessor doubles every numeric item of the data array and drops the rest.
type DataProcessor struct {
	Latency time.Duration
}

// NewDataProcessingAgent builds the data_processing_agent.
func NewDataProcessingAgent(latency time.Duration, opts ...agent.Option) *agent.Agent {
	opts = append([]agent.Option{agent.WithKind(agent.KindDataProcessing)}, opts...)
	return agent.New(DataProcessingName, "An agent that processes data.", DataProcessor{Latency: latency}, opts...)
}

func (d DataProcessor) Execute(ctx context.Context, task agent.Task) (agent.Result, error) {
	if err := pause(ctx, d.Latency); err != nil {
		return agent.Result{}, err
	}
	if task.Name != TaskProcessData {
		return agent.UnknownTask(task), nil
	}
	processed := make([]any, 0)
	for _, item := range task.Parameters.Slice("data") {
		if n, ok := agent.Number(item); ok {
			processed = append(processed, n*2)
		}
	}
	return agent.Completed(task, agent.Params{"processed_data": processed}), nil
}
