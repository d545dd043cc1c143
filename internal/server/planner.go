package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/agentea/internal/agent"
	"github.com/mohammad-safakhou/agentea/internal/executor"
	"github.com/mohammad-safakhou/agentea/internal/planner"
)

// PlanRequest asks the planner for a plan.
type PlanRequest struct {
	Description string   `json:"description"`
	Context     string   `json:"context"`
	Constraints []string `json:"constraints"`
}

// ExecutePlanRequest runs a whole plan through the executor.
type ExecutePlanRequest struct {
	Plan    agent.Params `json:"plan"`
	Context string       `json:"context"`
}

// ExecuteStepRequest runs one step through the executor.
type ExecuteStepRequest struct {
	Step    agent.Params `json:"step"`
	Context string       `json:"context"`
}

// PlannerHandler serves the planner and executor agents.
type PlannerHandler struct {
	Registry *agent.Registry
}

func (h *PlannerHandler) Register(g *echo.Group) {
	g.POST("/create", h.createPlan)
	g.POST("/execute", h.executePlan)
	g.POST("/execute-step", h.executeStep)
	g.GET("/plan/:task_id", h.result(planner.AgentName))
	g.GET("/execution/:task_id", h.result(executor.AgentName))
}

func (h *PlannerHandler) createPlan(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "description is required")
	}
	a, err := h.Registry.Get(planner.AgentName)
	if err != nil {
		return err
	}
	task := agent.NewTask(planner.TaskCreatePlan, "Create a plan for: "+req.Description, agent.Params{
		"description": req.Description,
		"context":     req.Context,
		"constraints": req.Constraints,
	})
	return c.JSON(http.StatusOK, submit(c, a, task))
}

func (h *PlannerHandler) executePlan(c echo.Context) error {
	var req ExecutePlanRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Plan == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "plan is required")
	}
	a, err := h.Registry.Get(executor.AgentName)
	if err != nil {
		return err
	}
	task := agent.NewTask(executor.TaskExecutePlan, "Execute plan: "+titleOr(req.Plan, "Unnamed plan"), agent.Params{
		"plan":    map[string]any(req.Plan),
		"context": req.Context,
	})
	return c.JSON(http.StatusOK, submit(c, a, task))
}

func (h *PlannerHandler) executeStep(c echo.Context) error {
	var req ExecuteStepRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Step == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "step is required")
	}
	a, err := h.Registry.Get(executor.AgentName)
	if err != nil {
		return err
	}
	task := agent.NewTask(executor.TaskExecuteStep, "Execute step: "+titleOr(req.Step, "Unnamed step"), agent.Params{
		"step":    map[string]any(req.Step),
		"context": req.Context,
	})
	return c.JSON(http.StatusOK, submit(c, a, task))
}

func (h *PlannerHandler) result(agentName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, err := h.Registry.Get(agentName)
		if err != nil {
			return err
		}
		res, err := a.GetResult(c.Param("task_id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	}
}

func titleOr(doc agent.Params, fallback string) string {
	if t := doc.String("title"); t != "" {
		return t
	}
	return fallback
}
