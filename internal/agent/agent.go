package agent

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Executor carries the kind-specific logic of an agent. Implementations must not
// retain or mutate the agent's task maps; failures are reported either as a
// Result with StatusFailed or as a returned error.
type Executor interface {
	Execute(ctx context.Context, task Task) (Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, task Task) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, task Task) (Result, error) { return f(ctx, task) }

// Observer is notified about lifecycle transitions. Calls happen outside the
// agent lock and must not block for long.
type Observer interface {
	TaskStarted(ctx context.Context, agentName string, task Task)
	TaskFinished(ctx context.Context, agentName string, res Result, elapsed time.Duration)
}

type entry struct {
	task   Task
	status Status
	result *Result
}

// Agent owns the lifecycle of every task submitted to it.
type Agent struct {
	Name        string
	Description string
	Kind        Kind

	exec      Executor
	logger    *log.Logger
	observers []Observer

	mu      sync.RWMutex
	entries map[string]*entry
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger overrides the agent logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(a *Agent) {
		if o != nil {
			a.observers = append(a.observers, o)
		}
	}
}

// WithKind records which variant the executor implements.
func WithKind(k Kind) Option {
	return func(a *Agent) { a.Kind = k }
}

// New creates an agent named name that runs tasks through exec.
func New(name, description string, exec Executor, opts ...Option) *Agent {
	a := &Agent{
		Name:        name,
		Description: description,
		exec:        exec,
		logger:      log.New(os.Stderr, "[AGENT] ", log.LstdFlags),
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Discard is a logger that drops everything; handy in tests.
var Discard = log.New(io.Discard, "", 0)

// RunTask records task, runs it to completion and returns its id.
func (a *Agent) RunTask(ctx context.Context, task Task) string {
	task, ok := a.record(task)
	if !ok {
		return task.ID
	}
	a.run(ctx, task)
	return task.ID
}

// Submit records task as running and executes it in the background. The id is
// returned before execution finishes; poll GetResult for the outcome.
func (a *Agent) Submit(ctx context.Context, task Task) string {
	task, ok := a.record(task)
	if !ok {
		return task.ID
	}
	bg := context.WithoutCancel(ctx)
	go a.run(bg, task)
	return task.ID
}

// GetResult returns the stored result, or a payload-less result carrying the
// current status while the task is still running.
func (a *Agent) GetResult(taskID string) (Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[taskID]
	if !ok {
		return Result{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if e.result != nil {
		return *e.result, nil
	}
	return Result{TaskID: taskID, Status: e.status}, nil
}

// Task returns the submitted task with the given id.
func (a *Agent) Task(taskID string) (Task, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[taskID]
	if !ok {
		return Task{}, false
	}
	return e.task, true
}

// Len returns the number of tasks recorded by the agent.
func (a *Agent) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// record stores a new running entry, generating an id when task has none.
// Reused ids are ignored so a recorded status is never rolled back.
func (a *Agent) record(task Task) (Task, bool) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	a.mu.Lock()
	if _, exists := a.entries[task.ID]; exists {
		a.mu.Unlock()
		a.logger.Printf("%s: task %s already submitted, ignoring", a.Name, task.ID)
		return task, false
	}
	a.entries[task.ID] = &entry{task: task, status: StatusRunning}
	a.mu.Unlock()
	return task, true
}

func (a *Agent) run(ctx context.Context, task Task) {
	for _, o := range a.observers {
		o.TaskStarted(ctx, a.Name, task)
	}
	start := time.Now()
	res := a.execute(ctx, task)
	a.finish(task.ID, res)
	elapsed := time.Since(start)
	if res.Status == StatusFailed {
		a.logger.Printf("%s: task %s (%s) failed after %s: %s", a.Name, task.ID, task.Name, elapsed, res.Error)
	}
	for _, o := range a.observers {
		o.TaskFinished(ctx, a.Name, res, elapsed)
	}
}

func (a *Agent) execute(ctx context.Context, task Task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{TaskID: task.ID, Status: StatusFailed, Error: fmt.Sprint(r)}
		}
	}()
	if a.exec == nil {
		return Result{TaskID: task.ID, Status: StatusFailed, Error: "agent has no executor"}
	}
	out, err := a.exec.Execute(ctx, task)
	if err != nil {
		return Result{TaskID: task.ID, Status: StatusFailed, Error: err.Error()}
	}
	out.TaskID = task.ID
	if !out.Status.Terminal() {
		// Executors report their own status; anything non-terminal means it finished cleanly.
		out.Status = StatusCompleted
	}
	return out
}

func (a *Agent) finish(taskID string, res Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[taskID]
	if !ok || e.status.Terminal() {
		return
	}
	e.result = &res
	e.status = res.Status
}
