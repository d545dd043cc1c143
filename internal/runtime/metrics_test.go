package runtime

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

func TestMetricsObserveTasks(t *testing.T) {
	m := NewMetrics()
	a := agent.New("calculator_agent", "", agent.ExecutorFunc(func(ctx context.Context, task agent.Task) (agent.Result, error) {
		if task.Name == "boom" {
			return agent.Result{}, errors.New("boom")
		}
		return agent.Completed(task, nil), nil
	}), agent.WithObserver(m), agent.WithLogger(agent.Discard))

	a.RunTask(context.Background(), agent.NewTask("calculate", "", nil))
	a.RunTask(context.Background(), agent.NewTask("calculate", "", nil))
	a.RunTask(context.Background(), agent.NewTask("boom", "", nil))

	if got := testutil.ToFloat64(m.tasks.WithLabelValues("calculator_agent", "completed")); got != 2 {
		t.Fatalf("expected 2 completed, got %v", got)
	}
	if got := testutil.ToFloat64(m.tasks.WithLabelValues("calculator_agent", "failed")); got != 1 {
		t.Fatalf("expected 1 failed, got %v", got)
	}
	if got := testutil.ToFloat64(m.inflight.WithLabelValues("calculator_agent")); got != 0 {
		t.Fatalf("expected nothing in flight, got %v", got)
	}
}

func TestMetricsGenerationAndSteps(t *testing.T) {
	m := NewMetrics()
	m.ObserveGeneration("llama3", 20*time.Millisecond, nil)
	m.ObserveGeneration("llama3", time.Second, errors.New("down"))

	em := m.ExecutorMetrics()
	for _, status := range []string{"completed", " Failed ", "", "partially done", "thinking..."} {
		em.StepFinished(context.Background(), status)
	}
	em.StepDuration(context.Background(), "s1", time.Second)

	if got := testutil.ToFloat64(m.genErrors.WithLabelValues("llama3")); got != 1 {
		t.Fatalf("expected 1 generation error, got %v", got)
	}
	if got := testutil.ToFloat64(m.planSteps.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected case-folded failed status, got %v", got)
	}
	if got := testutil.ToFloat64(m.planSteps.WithLabelValues("other")); got != 3 {
		t.Fatalf("expected free-form statuses to share one series, got %v", got)
	}
	if n := testutil.CollectAndCount(m.planSteps); n != 3 {
		t.Fatalf("expected three step status series, got %d", n)
	}
	if n := testutil.CollectAndCount(m.genTime); n != 1 {
		t.Fatalf("expected one generation series, got %d", n)
	}
}

func TestMetricsHandlerExposesNamespace(t *testing.T) {
	m := NewMetrics()
	m.planSteps.WithLabelValues("completed").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `agentea_plan_steps_total{status="completed"} 1`) {
		t.Fatalf("metrics output missing plan steps:\n%s", body)
	}
}
