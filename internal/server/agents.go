package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

// TaskRequest submits a named task to a named agent.
type TaskRequest struct {
	AgentName   string       `json:"agent_name"`
	TaskName    string       `json:"task_name"`
	Description string       `json:"description"`
	Parameters  agent.Params `json:"parameters"`
}

// TaskResponse acknowledges a submission. Status is always running.
type TaskResponse struct {
	TaskID    string       `json:"task_id"`
	AgentName string       `json:"agent_name"`
	Status    agent.Status `json:"status"`
}

// AgentsHandler serves the simple-task registry.
type AgentsHandler struct {
	Registry *agent.Registry
}

func (h *AgentsHandler) Register(g *echo.Group) {
	g.GET("/", h.list)
	g.POST("/tasks", h.createTask)
	g.GET("/tasks/:agent_name/:task_id", h.getTask)
}

func (h *AgentsHandler) list(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Registry.List())
}

func (h *AgentsHandler) createTask(c echo.Context) error {
	var req TaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.AgentName) == "" || strings.TrimSpace(req.TaskName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_name and task_name are required")
	}
	a, err := h.Registry.Get(req.AgentName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, submit(c, a, agent.NewTask(req.TaskName, req.Description, req.Parameters)))
}

func (h *AgentsHandler) getTask(c echo.Context) error {
	a, err := h.Registry.Get(c.Param("agent_name"))
	if err != nil {
		return err
	}
	res, err := a.GetResult(c.Param("task_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// submit hands task to a in the background and builds the acknowledgement.
func submit(c echo.Context, a *agent.Agent, task agent.Task) TaskResponse {
	id := a.Submit(c.Request().Context(), task)
	return TaskResponse{TaskID: id, AgentName: a.Name, Status: agent.StatusRunning}
}
