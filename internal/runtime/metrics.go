package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/agentea/internal/agent"
	"github.com/mohammad-safakhou/agentea/internal/executor"
	"github.com/mohammad-safakhou/agentea/internal/llm"
)

// Metrics owns the service's prometheus registry and collectors. It observes
// agent lifecycles, backend generations and plan steps.
type Metrics struct {
	registry *prometheus.Registry

	tasks     *prometheus.CounterVec
	inflight  *prometheus.GaugeVec
	taskTime  *prometheus.HistogramVec
	genTime   *prometheus.HistogramVec
	genErrors *prometheus.CounterVec
	planSteps *prometheus.CounterVec
	stepTime  prometheus.Histogram
}

// NewMetrics registers every collector on a fresh registry, plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentea",
			Name:      "tasks_total",
			Help:      "Tasks finished by agent and terminal status.",
		}, []string{"agent", "status"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agentea",
			Name:      "tasks_running",
			Help:      "Tasks currently executing per agent.",
		}, []string{"agent"}),
		taskTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentea",
			Name:      "task_duration_seconds",
			Help:      "Wall time of task execution.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"agent"}),
		genTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentea",
			Name:      "generation_duration_seconds",
			Help:      "Latency of text generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"model"}),
		genErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentea",
			Name:      "generation_errors_total",
			Help:      "Failed text generation calls.",
		}, []string{"model"}),
		planSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentea",
			Name:      "plan_steps_total",
			Help:      "Executed plan steps by reported status.",
		}, []string{"status"}),
		stepTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agentea",
			Name:      "plan_step_duration_seconds",
			Help:      "Wall time of a single plan step.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tasks, m.inflight, m.taskTime, m.genTime, m.genErrors, m.planSteps, m.stepTime,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TaskStarted(ctx context.Context, agentName string, task agent.Task) {
	m.inflight.WithLabelValues(agentName).Inc()
}

func (m *Metrics) TaskFinished(ctx context.Context, agentName string, res agent.Result, elapsed time.Duration) {
	m.inflight.WithLabelValues(agentName).Dec()
	m.tasks.WithLabelValues(agentName, string(res.Status)).Inc()
	m.taskTime.WithLabelValues(agentName).Observe(elapsed.Seconds())
}

// ObserveGeneration records one backend call.
func (m *Metrics) ObserveGeneration(model string, elapsed time.Duration, err error) {
	m.genTime.WithLabelValues(model).Observe(elapsed.Seconds())
	if err != nil {
		m.genErrors.WithLabelValues(model).Inc()
	}
}

// ExecutorMetrics adapts the collectors to the executor callbacks.
func (m *Metrics) ExecutorMetrics() executor.Metrics {
	return executor.Metrics{
		StepDuration: func(ctx context.Context, stepID string, d time.Duration) {
			m.stepTime.Observe(d.Seconds())
		},
		StepFinished: func(ctx context.Context, status string) {
			m.planSteps.WithLabelValues(stepStatusLabel(status)).Inc()
		},
	}
}

// stepStatusLabel folds model-reported statuses into a fixed label set.
func stepStatusLabel(status string) string {
	switch agent.Status(strings.ToLower(strings.TrimSpace(status))) {
	case agent.StatusCompleted:
		return string(agent.StatusCompleted)
	case agent.StatusFailed:
		return string(agent.StatusFailed)
	}
	return "other"
}

var (
	_ agent.Observer = (*Metrics)(nil)
	_ llm.Observer   = (*Metrics)(nil)
)
