package agent

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is a unit of requested work routed to an agent by name.
type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  Params `json:"parameters"`
}

// NewTask builds a Task with a freshly generated id.
func NewTask(name, description string, params Params) Task {
	if params == nil {
		params = Params{}
	}
	return Task{ID: uuid.NewString(), Name: name, Description: description, Parameters: params}
}

// Result is the in-progress or terminal outcome of a Task.
type Result struct {
	TaskID string `json:"task_id"`
	Status Status `json:"status"`
	Result Params `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Completed builds a completed result for task.
func Completed(task Task, result Params) Result {
	return Result{TaskID: task.ID, Status: StatusCompleted, Result: result}
}

// Failed builds a failed result for task. result may carry partial output.
func Failed(task Task, errMsg string, result Params) Result {
	return Result{TaskID: task.ID, Status: StatusFailed, Error: errMsg, Result: result}
}

// Params is an open key/value payload holding JSON-shaped values: string,
// float64 (or any Go number), bool, nil, map[string]any and []any.
type Params map[string]any

// Has reports whether key is present, even with a nil value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value under key when it is a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Map returns the nested object under key, accepting both Params and map[string]any.
func (p Params) Map(key string) Params {
	return AsParams(p[key])
}

// Slice returns the array under key.
func (p Params) Slice(key string) []any {
	switch v := p[key].(type) {
	case []any:
		return v
	case []Params:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	}
	return nil
}

// Strings returns the string elements of the array under key, skipping anything else.
func (p Params) Strings(key string) []string {
	var out []string
	for _, item := range p.Slice(key) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Numbers returns the array under key as float64s. ok is false when the key is
// missing or any element is not a number.
func (p Params) Numbers(key string) ([]float64, bool) {
	raw, exists := p[key]
	if !exists {
		return nil, false
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []float64:
		return v, true
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, true
	default:
		return nil, false
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		n, ok := Number(item)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// Number converts JSON and Go numeric values to float64. Booleans are not numbers.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// AsParams converts v into Params when it is an object; otherwise nil.
func AsParams(v any) Params {
	switch m := v.(type) {
	case Params:
		return m
	case map[string]any:
		return Params(m)
	}
	return nil
}
