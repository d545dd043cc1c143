package executor

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mohammad-safakhou/agentea/internal/agent"
	"github.com/mohammad-safakhou/agentea/internal/llm"
)

// StepTemperature keeps execution reports close to deterministic.
const StepTemperature = 0.3

const stepSystemPrompt = "You are an execution assistant that carries out steps in a plan. " +
	"For each step, you should determine how to accomplish it and provide a detailed output. " +
	"If you cannot complete a step, explain why and provide an error message."

// stepReport is the shape requested from the model for every step.
type stepReport struct {
	Status string `json:"status"`
	Output string `json:"output"`
	Error  string `json:"error"`
	Notes  string `json:"notes"`
}

var stepFormat = stepReport{Status: "string", Output: "string", Error: "string", Notes: "string"}

// Outcome is the aggregate result of a plan or step execution.
type Outcome struct {
	Status agent.Status
	Error  string
	Result agent.Params
}

// ToResult converts the outcome into a task result.
func (o Outcome) ToResult(taskID string) agent.Result {
	return agent.Result{TaskID: taskID, Status: o.Status, Error: o.Error, Result: o.Result}
}

func failed(msg string, result agent.Params) Outcome {
	return Outcome{Status: agent.StatusFailed, Error: msg, Result: result}
}

// Executor runs plan steps in order against a structured generator.
type Executor struct {
	gen         llm.StructuredGenerator
	checkpoints CheckpointManager
	metrics     Metrics
	logger      *log.Logger
	maxTokens   int
}

// Metrics aggregates optional telemetry callbacks.
type Metrics struct {
	StepDuration func(ctx context.Context, stepID string, d time.Duration)
	StepFinished func(ctx context.Context, status string)
}

// Option configures executor behaviour.
type Option func(*Executor)

// WithCheckpointManager sets the checkpoint manager implementation.
func WithCheckpointManager(mgr CheckpointManager) Option {
	return func(ex *Executor) {
		ex.checkpoints = mgr
	}
}

// WithMetrics sets executor metrics callbacks.
func WithMetrics(m Metrics) Option {
	return func(ex *Executor) {
		ex.metrics = m
	}
}

// WithLogger overrides the executor logger.
func WithLogger(l *log.Logger) Option {
	return func(ex *Executor) {
		if l != nil {
			ex.logger = l
		}
	}
}

// WithMaxTokens caps the generation length of each step report.
func WithMaxTokens(n int) Option {
	return func(ex *Executor) {
		if n > 0 {
			ex.maxTokens = n
		}
	}
}

// New creates a new Executor instance.
func New(gen llm.StructuredGenerator, opts ...Option) *Executor {
	ex := &Executor{
		gen:         gen,
		checkpoints: NewNoopCheckpointManager(),
		logger:      log.New(os.Stderr, "[EXEC] ", log.LstdFlags),
		maxTokens:   llm.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(ex)
	}
	if ex.checkpoints == nil {
		ex.checkpoints = NewNoopCheckpointManager()
	}
	return ex
}

type runIDKey struct{}

// WithRunID tags ctx with the run identifier used for checkpoints.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func runIDFrom(ctx context.Context, fallback string) string {
	if v, ok := ctx.Value(runIDKey{}).(string); ok && v != "" {
		return v
	}
	return fallback
}

// ExecutePlan validates plan and executes its steps in order, stopping at the
// first step that reports status "failed". Backend faults never escape as errors.
func (e *Executor) ExecutePlan(ctx context.Context, plan agent.Params, execContext string) Outcome {
	if len(plan) == 0 {
		return failed("Missing plan", nil)
	}
	if !ValidatePlan(plan) {
		return failed("Invalid plan structure", nil)
	}

	steps := plan.Slice("steps")
	runID := runIDFrom(ctx, text(plan["plan_id"]))
	if err := e.checkpoints.StartRun(ctx, runID); err != nil {
		e.logger.Printf("checkpoint start %s: %v", runID, err)
	}

	records := make([]any, 0, len(steps))
	aggregate := func(completed int) agent.Params {
		return agent.Params{
			"plan_id":         plan["plan_id"],
			"title":           plan["title"],
			"steps_completed": completed,
			"total_steps":     len(steps),
			"step_results":    records,
		}
	}

	for i, raw := range steps {
		step := agent.AsParams(raw)
		report := e.runStep(ctx, runID, i, step, execContext)
		records = append(records, agent.Params{
			"step_id": step["step_id"],
			"title":   step["title"],
			"status":  report["status"],
			"output":  report["output"],
			"error":   report["error"],
		})
		if isFailed(report) {
			msg := fmt.Sprintf("Step %s failed: %s", text(step["step_id"]), text(report["error"]))
			return failed(msg, aggregate(len(records)-1))
		}
	}

	return Outcome{Status: agent.StatusCompleted, Result: aggregate(len(records))}
}

// ExecuteStep runs a single step without a surrounding plan.
func (e *Executor) ExecuteStep(ctx context.Context, step agent.Params, execContext string) Outcome {
	if len(step) == 0 {
		return failed("Missing step", nil)
	}
	if !ValidateStep(step) {
		return failed("Invalid step structure", nil)
	}
	runID := runIDFrom(ctx, text(step["step_id"]))
	report := e.runStep(ctx, runID, 0, step, execContext)
	result := agent.Params{
		"step_id": step["step_id"],
		"title":   step["title"],
		"output":  report["output"],
	}
	if isFailed(report) {
		return failed(text(report["error"]), result)
	}
	return Outcome{Status: agent.StatusCompleted, Result: result}
}

// runStep asks the model to execute step and always returns a report map.
func (e *Executor) runStep(ctx context.Context, runID string, index int, step agent.Params, execContext string) map[string]any {
	stepID := text(step["step_id"])
	if err := e.checkpoints.SaveStepStart(ctx, runID, stepID, index); err != nil {
		e.logger.Printf("checkpoint step start %s/%s: %v", runID, stepID, err)
	}
	start := time.Now()
	report := e.generateReport(ctx, step, execContext)
	if e.metrics.StepDuration != nil {
		e.metrics.StepDuration(ctx, stepID, time.Since(start))
	}

	status := text(report["status"])
	if e.metrics.StepFinished != nil {
		e.metrics.StepFinished(ctx, status)
	}
	var err error
	if isFailed(report) {
		err = e.checkpoints.SaveStepFailure(ctx, runID, stepID, index, report)
	} else {
		err = e.checkpoints.SaveStepSuccess(ctx, runID, stepID, index, report)
	}
	if err != nil {
		e.logger.Printf("checkpoint step %s/%s: %v", runID, stepID, err)
	}
	return report
}

func (e *Executor) generateReport(ctx context.Context, step agent.Params, execContext string) (report map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			report = failedReport(fmt.Sprintf("Execution error: %v", r), "")
		}
	}()
	if e.gen == nil {
		return failedReport("Execution error: no generator configured", "")
	}
	req := llm.GenerateRequest{
		Prompt:      ExecutionPrompt(step, execContext),
		System:      stepSystemPrompt,
		Temperature: StepTemperature,
		MaxTokens:   e.maxTokens,
	}
	res, err := e.gen.GenerateStructured(ctx, req, stepFormat)
	if err != nil {
		return failedReport(fmt.Sprintf("Execution error: %v", err), "")
	}
	if llm.IsExtractionFailure(res) {
		return failedReport(
			fmt.Sprintf("Failed to generate structured execution result: %s", text(res[llm.FailureKey])),
			text(res[llm.RawResponseKey]),
		)
	}
	return res
}

func failedReport(msg, notes string) map[string]any {
	return map[string]any{"status": "failed", "output": "", "error": msg, "notes": notes}
}

func isFailed(report map[string]any) bool {
	return text(report["status"]) == string(agent.StatusFailed)
}

// text renders a JSON value for messages and prompts; nil renders empty.
func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}
