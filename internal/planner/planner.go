package planner

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/agentea/internal/agent"
	"github.com/mohammad-safakhou/agentea/internal/executor"
	"github.com/mohammad-safakhou/agentea/internal/llm"
)

const (
	// AgentName is the registry name of the planner agent.
	AgentName = "planner_agent"
	// TaskCreatePlan is the only task the planner serves.
	TaskCreatePlan = "create_plan"
	// PlanTemperature leaves room for varied decompositions.
	PlanTemperature = 0.7
)

const systemPrompt = "You are a planning assistant that creates detailed, structured plans. " +
	"Your plans should be comprehensive, logical, and actionable. " +
	"Break down complex tasks into clear steps with specific outcomes."

// PlanFormat is the plan shape requested from the model. Field order is the
// order the keys appear in the prompt.
type PlanFormat struct {
	PlanID                  string       `json:"plan_id"`
	Title                   string       `json:"title"`
	Description             string       `json:"description"`
	Steps                   []StepFormat `json:"steps"`
	EstimatedCompletionTime string       `json:"estimated_completion_time"`
	Dependencies            []string     `json:"dependencies"`
	ResourcesNeeded         []string     `json:"resources_needed"`
}

// StepFormat is one step of PlanFormat.
type StepFormat struct {
	StepID          string `json:"step_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ExpectedOutcome string `json:"expected_outcome"`
}

var planFormat = PlanFormat{
	PlanID:      "string",
	Title:       "string",
	Description: "string",
	Steps: []StepFormat{{
		StepID:          "string",
		Title:           "string",
		Description:     "string",
		ExpectedOutcome: "string",
	}},
	EstimatedCompletionTime: "string",
	Dependencies:            []string{"string"},
	ResourcesNeeded:         []string{"string"},
}

// Planner turns a task description into a structured plan.
type Planner struct {
	gen       llm.StructuredGenerator
	logger    *log.Logger
	maxTokens int
}

// Option configures the planner.
type Option func(*Planner)

// WithLogger overrides the planner logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxTokens caps the generation length of a plan.
func WithMaxTokens(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// New creates a Planner backed by gen.
func New(gen llm.StructuredGenerator, opts ...Option) *Planner {
	p := &Planner{
		gen:       gen,
		logger:    log.New(os.Stderr, "[PLANNER] ", log.LstdFlags),
		maxTokens: llm.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute serves create_plan.
func (p *Planner) Execute(ctx context.Context, task agent.Task) (res agent.Result, err error) {
	if task.Name != TaskCreatePlan {
		return agent.UnknownTask(task), nil
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = agent.Failed(task, fmt.Sprintf("Planning error: %v", r), nil), nil
		}
	}()

	description := task.Parameters.String("description")
	if description == "" {
		return agent.Failed(task, "Missing task description", nil), nil
	}
	if p.gen == nil {
		return agent.Failed(task, "Planning error: no generator configured", nil), nil
	}

	req := llm.GenerateRequest{
		Prompt:      PlanningPrompt(description, task.Parameters.String("context"), task.Parameters.Strings("constraints")),
		System:      systemPrompt,
		Temperature: PlanTemperature,
		MaxTokens:   p.maxTokens,
	}
	plan, genErr := p.gen.GenerateStructured(ctx, req, planFormat)
	if genErr != nil {
		return agent.Failed(task, "Planning error: "+genErr.Error(), nil), nil
	}
	if llm.IsExtractionFailure(plan) {
		msg := fmt.Sprintf("Failed to generate structured plan: %v", plan[llm.FailureKey])
		return agent.Failed(task, msg, agent.Params{llm.RawResponseKey: plan[llm.RawResponseKey]}), nil
	}
	if verr := executor.PlanErrors(plan); verr != nil {
		p.logger.Printf("plan for task %s does not match the plan schema: %v", task.ID, verr)
	}
	return agent.Completed(task, agent.Params{"plan": plan}), nil
}

// PlanningPrompt renders the instruction for create_plan. Constraints are numbered from 1.
func PlanningPrompt(description, execContext string, constraints []string) string {
	var b strings.Builder
	b.WriteString("Create a detailed plan for the following task:\n\n" + description + "\n\n")
	if execContext != "" {
		b.WriteString("Context:\n" + execContext + "\n\n")
	}
	if len(constraints) > 0 {
		b.WriteString("Constraints:\n")
		for i, c := range constraints {
			b.WriteString(strconv.Itoa(i+1) + ". " + c + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Create a comprehensive plan with clear, actionable steps. " +
		"Each step should have a specific outcome and be logically ordered. " +
		"Include any dependencies between steps and resources needed.")
	return b.String()
}

// NewAgent wraps p in the planner agent.
func NewAgent(p *Planner, opts ...agent.Option) *agent.Agent {
	opts = append([]agent.Option{agent.WithKind(agent.KindPlanner)}, opts...)
	return agent.New(AgentName, "Creates structured plans for tasks", p, opts...)
}
