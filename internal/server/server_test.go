package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/agentea/internal/agent"
	"github.com/mohammad-safakhou/agentea/internal/executor"
	"github.com/mohammad-safakhou/agentea/internal/llm"
	"github.com/mohammad-safakhou/agentea/internal/planner"
	"github.com/mohammad-safakhou/agentea/internal/runtime"
	"github.com/mohammad-safakhou/agentea/internal/worker"
)

var quiet = log.New(io.Discard, "", 0)

// cannedGenerator answers every structured generation with the same object.
type cannedGenerator struct {
	mu      sync.Mutex
	out     map[string]any
	prompts []string
}

func (g *cannedGenerator) GenerateStructured(ctx context.Context, req llm.GenerateRequest, format any) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, req.Prompt)
	out := make(map[string]any, len(g.out))
	for k, v := range g.out {
		out[k] = v
	}
	return out, nil
}

func testServer(t *testing.T, secret string) (*Server, *cannedGenerator, *cannedGenerator) {
	t.Helper()
	planGen := &cannedGenerator{out: map[string]any{
		"plan_id": "p1",
		"title":   "Tea",
		"steps":   []any{map[string]any{"step_id": "s1", "title": "Boil", "description": "Boil water"}},
	}}
	stepGen := &cannedGenerator{out: map[string]any{"status": "completed", "output": "boiled"}}
	metrics := runtime.NewMetrics()
	opts := []agent.Option{agent.WithLogger(agent.Discard), agent.WithObserver(metrics)}
	planning := agent.NewRegistry(
		planner.NewAgent(planner.New(planGen, planner.WithLogger(agent.Discard)), opts...),
		executor.NewAgent(executor.New(stepGen, executor.WithLogger(agent.Discard), executor.WithMetrics(metrics.ExecutorMetrics())), opts...),
	)
	srv := New(Deps{
		Simple:    worker.NewRegistry(worker.Latency{}, opts...),
		Planning:  planning,
		Metrics:   metrics,
		JWTSecret: []byte(secret),
		Logger:    quiet,
	})
	return srv, planGen, stepGen
}

func do(t *testing.T, srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// poll fetches path until the task reaches a terminal status.
func poll(t *testing.T, srv *Server, path string) agent.Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: %d %s", path, rec.Code, rec.Body.String())
		}
		res := decode[agent.Result](t, rec)
		if res.Status.Terminal() {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task at %s never finished", path)
	return agent.Result{}
}

func TestHealthzAndRootRedirect(t *testing.T) {
	srv, _, _ := testServer(t, "")

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["status"] != "ok" {
		t.Fatalf("unexpected healthz: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/agents/" {
		t.Fatalf("expected redirect to /agents/, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestListAgents(t *testing.T) {
	srv, _, _ := testServer(t, "")
	rec := do(t, srv, http.MethodGet, "/agents/", "")
	names := decode[[]string](t, rec)
	if len(names) != 2 || names[0] != worker.CalculatorName || names[1] != worker.DataProcessingName {
		t.Fatalf("unexpected agents: %v", names)
	}
}

func TestSubmitAndPollCalculatorTask(t *testing.T) {
	srv, _, _ := testServer(t, "")
	body := `{"agent_name":"calculator_agent","task_name":"calculate","parameters":{"operation":"multiply","operands":[2,3,4]}}`

	rec := do(t, srv, http.MethodPost, "/agents/tasks", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	ack := decode[TaskResponse](t, rec)
	if ack.TaskID == "" || ack.AgentName != worker.CalculatorName || ack.Status != agent.StatusRunning {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	res := poll(t, srv, "/agents/tasks/calculator_agent/"+ack.TaskID)
	if res.Status != agent.StatusCompleted || res.Result["result"] != float64(24) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestFailedTaskIsStillPollable(t *testing.T) {
	srv, _, _ := testServer(t, "")
	body := `{"agent_name":"calculator_agent","task_name":"calculate","parameters":{"operation":"divide","operands":[1,0]}}`
	ack := decode[TaskResponse](t, do(t, srv, http.MethodPost, "/agents/tasks", body))

	res := poll(t, srv, "/agents/tasks/calculator_agent/"+ack.TaskID)
	if res.Status != agent.StatusFailed || res.Error != "Division by zero is not allowed" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAgentRouteErrors(t *testing.T) {
	srv, _, _ := testServer(t, "")
	cases := []struct {
		name, method, path, body string
		code                     int
	}{
		{"unknown agent", http.MethodPost, "/agents/tasks", `{"agent_name":"nope","task_name":"calculate"}`, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/agents/tasks", `{"agent_name":`, http.StatusBadRequest},
		{"missing names", http.MethodPost, "/agents/tasks", `{"parameters":{}}`, http.StatusBadRequest},
		{"unknown agent result", http.MethodGet, "/agents/tasks/nope/123", "", http.StatusNotFound},
		{"unknown task", http.MethodGet, "/agents/tasks/calculator_agent/123", "", http.StatusNotFound},
		{"unknown plan", http.MethodGet, "/planner/plan/123", "", http.StatusNotFound},
		{"unknown execution", http.MethodGet, "/planner/execution/123", "", http.StatusNotFound},
		{"plan missing", http.MethodPost, "/planner/execute", `{"context":"x"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := do(t, srv, tc.method, tc.path, tc.body)
		if rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d (%s)", tc.name, tc.code, rec.Code, rec.Body.String())
			continue
		}
		if decode[map[string]any](t, rec)["error"] == "" {
			t.Errorf("%s: missing error message", tc.name)
		}
	}
}

func TestCreatePlanRoute(t *testing.T) {
	srv, planGen, _ := testServer(t, "")
	body := `{"description":"Make tea","context":"kitchen","constraints":["no milk"]}`

	rec := do(t, srv, http.MethodPost, "/planner/create", body)
	ack := decode[TaskResponse](t, rec)
	if ack.AgentName != planner.AgentName || ack.Status != agent.StatusRunning {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	res := poll(t, srv, "/planner/plan/"+ack.TaskID)
	if res.Status != agent.StatusCompleted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Result.Map("plan").String("plan_id") != "p1" {
		t.Fatalf("plan not returned: %+v", res.Result)
	}
	prompt := planGen.prompts[0]
	if !strings.Contains(prompt, "Make tea") || !strings.Contains(prompt, "1. no milk") || !strings.Contains(prompt, "kitchen") {
		t.Fatalf("prompt missing request fields:\n%s", prompt)
	}
}

func TestExecutePlanAndStepRoutes(t *testing.T) {
	srv, _, stepGen := testServer(t, "")
	plan := `{"plan":{"plan_id":"p1","title":"Tea","steps":[{"step_id":"s1","title":"Boil","description":"Boil water"}]},"context":"kitchen"}`

	ack := decode[TaskResponse](t, do(t, srv, http.MethodPost, "/planner/execute", plan))
	if ack.AgentName != executor.AgentName {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	res := poll(t, srv, "/planner/execution/"+ack.TaskID)
	if res.Status != agent.StatusCompleted || res.Result["steps_completed"] != float64(1) {
		t.Fatalf("unexpected plan result: %+v", res)
	}

	step := `{"step":{"step_id":"s2","title":"Steep","description":"Steep leaves"}}`
	ack = decode[TaskResponse](t, do(t, srv, http.MethodPost, "/planner/execute-step", step))
	res = poll(t, srv, "/planner/execution/"+ack.TaskID)
	if res.Status != agent.StatusCompleted || res.Result["output"] != "boiled" || res.Result["step_id"] != "s2" {
		t.Fatalf("unexpected step result: %+v", res)
	}
	if len(stepGen.prompts) != 2 {
		t.Fatalf("expected two generations, got %d", len(stepGen.prompts))
	}
}

func TestAuthGuardsAgentRoutes(t *testing.T) {
	srv, _, _ := testServer(t, "s3cret")

	if rec := do(t, srv, http.MethodGet, "/agents/", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/planner/plan/1", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on planner without token, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz must stay open, got %d", rec.Code)
	}

	tok, err := runtime.SignJWT("ops", []byte("s3cret"), time.Minute)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if rec := do(t, srv, http.MethodGet, "/agents/", "", echo.HeaderAuthorization, "Bearer "+tok); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv, _, _ := testServer(t, "")
	ack := decode[TaskResponse](t, do(t, srv, http.MethodPost, "/agents/tasks",
		`{"agent_name":"calculator_agent","task_name":"calculate","parameters":{"operation":"add","operands":[1]}}`))
	poll(t, srv, "/agents/tasks/calculator_agent/"+ack.TaskID)

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `agentea_tasks_running{agent="calculator_agent"}`) {
		t.Fatalf("metrics missing task gauge: %d\n%s", rec.Code, rec.Body.String())
	}
}

func TestDebugRoutesAbsentWithoutStore(t *testing.T) {
	srv, _, _ := testServer(t, "")
	if rec := do(t, srv, http.MethodGet, "/debug/db_check", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDebugModeLogsRequests(t *testing.T) {
	var buf strings.Builder
	logger := log.New(&buf, "", 0)

	srv := New(Deps{Logger: logger, Debug: true})
	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "GET /healthz -> 200") {
		t.Fatalf("request not logged: %q", buf.String())
	}

	buf.Reset()
	srv = New(Deps{Logger: logger})
	do(t, srv, http.MethodGet, "/healthz", "")
	if buf.Len() != 0 {
		t.Fatalf("request logged outside debug mode: %q", buf.String())
	}
}
