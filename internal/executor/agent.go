package executor

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

// Task names served by the executor agent.
const (
	TaskExecutePlan = "execute_plan"
	TaskExecuteStep = "execute_step"
)

// AgentName is the registry name of the executor agent.
const AgentName = "executor_agent"

// NewAgent wraps ex in an agent serving execute_plan and execute_step.
func NewAgent(ex *Executor, opts ...agent.Option) *agent.Agent {
	opts = append([]agent.Option{agent.WithKind(agent.KindExecutor)}, opts...)
	return agent.New(AgentName, "Executes plans step by step", agentExecutor{ex: ex}, opts...)
}

type agentExecutor struct {
	ex *Executor
}

func (a agentExecutor) Execute(ctx context.Context, task agent.Task) (agent.Result, error) {
	switch task.Name {
	case TaskExecutePlan:
		return a.guard(ctx, task, "Execution error", func(ctx context.Context) Outcome {
			return a.ex.ExecutePlan(ctx, task.Parameters.Map("plan"), task.Parameters.String("context"))
		}), nil
	case TaskExecuteStep:
		return a.guard(ctx, task, "Step execution error", func(ctx context.Context) Outcome {
			return a.ex.ExecuteStep(ctx, task.Parameters.Map("step"), task.Parameters.String("context"))
		}), nil
	}
	return agent.UnknownTask(task), nil
}

// guard runs fn with the task id as run id and turns panics into failed results.
func (a agentExecutor) guard(ctx context.Context, task agent.Task, prefix string, fn func(context.Context) Outcome) (res agent.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = agent.Failed(task, fmt.Sprintf("%s: %v", prefix, r), nil)
		}
	}()
	if a.ex == nil {
		return agent.Failed(task, prefix+": executor not configured", nil)
	}
	return fn(WithRunID(ctx, task.ID)).ToResult(task.ID)
}
