package streams

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

type fakeAdder struct {
	mu   sync.Mutex
	args []*redis.XAddArgs
	err  error
}

func (f *fakeAdder) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.args = append(f.args, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1-0", nil)
}

func (f *fakeAdder) envelopes(t *testing.T) []Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, 0, len(f.args))
	for _, a := range f.args {
		values := a.Values.(map[string]interface{})
		env, err := UnmarshalEnvelope(values["envelope"].([]byte))
		if err != nil {
			t.Fatalf("UnmarshalEnvelope: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func TestPublishFillsIDsAndTrims(t *testing.T) {
	adder := &fakeAdder{}
	pub := NewPublisher(adder, nil)

	id, err := pub.PublishRaw(context.Background(), "s", EventTaskSubmitted, map[string]string{"task_id": "t"}, WithMaxLenApprox(100))
	if err != nil {
		t.Fatalf("PublishRaw: %v", err)
	}
	if id != "1-0" {
		t.Fatalf("unexpected stream id %q", id)
	}
	args := adder.args[0]
	if args.Stream != "s" || args.MaxLen != 100 || !args.Approx {
		t.Fatalf("unexpected xadd args %+v", args)
	}
	env := adder.envelopes(t)[0]
	if env.EventID == "" || env.OccurredAt.IsZero() || env.PayloadVersion != PayloadV1 {
		t.Fatalf("envelope defaults missing: %+v", env)
	}
}

func TestPublishRejectsInvalidPayload(t *testing.T) {
	adder := &fakeAdder{}
	reg, err := NewTaskSchemaRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	pub := NewPublisher(adder, reg)

	if _, err := pub.PublishRaw(context.Background(), "s", EventTaskSubmitted, map[string]string{"agent": "a"}); err == nil {
		t.Fatalf("expected schema validation error")
	}
	if _, err := pub.PublishRaw(context.Background(), "", EventTaskSubmitted, map[string]string{}); err == nil {
		t.Fatalf("expected stream name error")
	}
	if len(adder.args) != 0 {
		t.Fatalf("nothing should reach redis")
	}
}

func TestPublishWrapsRedisError(t *testing.T) {
	boom := errors.New("connection reset")
	pub := NewPublisher(&fakeAdder{err: boom}, nil)
	_, err := pub.PublishRaw(context.Background(), "s", EventTaskFailed, map[string]string{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped redis error, got %v", err)
	}
}

func TestTaskObserverPublishesLifecycle(t *testing.T) {
	adder := &fakeAdder{}
	reg, err := NewTaskSchemaRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	obs := NewTaskObserver(NewPublisher(adder, reg), "", 0, log.New(io.Discard, "", 0))

	calc := agent.New("calculator_agent", "", agent.ExecutorFunc(func(ctx context.Context, task agent.Task) (agent.Result, error) {
		return agent.Failed(task, "Division by zero is not allowed", nil), nil
	}), agent.WithObserver(obs), agent.WithLogger(agent.Discard))
	calc.RunTask(context.Background(), agent.NewTask("calculate", "", nil))

	envs := adder.envelopes(t)
	if len(envs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(envs))
	}
	if envs[0].EventType != EventTaskSubmitted || envs[1].EventType != EventTaskFailed {
		t.Fatalf("unexpected event types %s, %s", envs[0].EventType, envs[1].EventType)
	}
	if adder.args[0].Stream != DefaultStream {
		t.Fatalf("expected default stream, got %q", adder.args[0].Stream)
	}
}

func TestTaskObserverSwallowsErrors(t *testing.T) {
	obs := NewTaskObserver(NewPublisher(&fakeAdder{err: errors.New("down")}, nil), "s", 0, log.New(io.Discard, "", 0))
	obs.TaskFinished(context.Background(), "a", agent.Result{TaskID: "t", Status: agent.StatusCompleted}, time.Second)

	var nilObs *TaskObserver
	nilObs.TaskStarted(context.Background(), "a", agent.Task{ID: "t"})
}
