package streams

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

// DefaultStream is the stream task lifecycle events are appended to.
const DefaultStream = "agentea.tasks"

const publishTimeout = 2 * time.Second

// TaskObserver publishes agent lifecycle transitions to a Redis stream.
// Publish failures are logged and never reach the agent.
type TaskObserver struct {
	publisher *Publisher
	stream    string
	maxLen    int64
	logger    *log.Logger
}

// NewTaskObserver builds an observer that appends to stream, trimming it to roughly maxLen entries.
func NewTaskObserver(pub *Publisher, stream string, maxLen int64, logger *log.Logger) *TaskObserver {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[STREAM] ", log.LstdFlags)
	}
	return &TaskObserver{publisher: pub, stream: stream, maxLen: maxLen, logger: logger}
}

type submittedPayload struct {
	Agent       string `json:"agent"`
	TaskID      string `json:"task_id"`
	TaskName    string `json:"task_name"`
	Description string `json:"description,omitempty"`
}

type finishedPayload struct {
	Agent      string `json:"agent"`
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (o *TaskObserver) TaskStarted(ctx context.Context, agentName string, task agent.Task) {
	o.publish(ctx, EventTaskSubmitted, submittedPayload{
		Agent:       agentName,
		TaskID:      task.ID,
		TaskName:    task.Name,
		Description: task.Description,
	})
}

func (o *TaskObserver) TaskFinished(ctx context.Context, agentName string, res agent.Result, elapsed time.Duration) {
	eventType := EventTaskCompleted
	if res.Status == agent.StatusFailed {
		eventType = EventTaskFailed
	}
	o.publish(ctx, eventType, finishedPayload{
		Agent:      agentName,
		TaskID:     res.TaskID,
		Status:     string(res.Status),
		Error:      res.Error,
		DurationMS: elapsed.Milliseconds(),
	})
}

func (o *TaskObserver) publish(ctx context.Context, eventType string, payload any) {
	if o == nil || o.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if _, err := o.publisher.PublishRaw(ctx, o.stream, eventType, payload, WithMaxLenApprox(o.maxLen)); err != nil {
		o.logger.Printf("publish %s: %v", eventType, err)
	}
}

var _ agent.Observer = (*TaskObserver)(nil)
