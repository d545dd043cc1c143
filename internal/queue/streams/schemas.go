package streams

import "fmt"

// Definition describes a schema entry managed by the registry.
type Definition struct {
	EventType string
	Version   string
	Schema    []byte
}

var baseDefinitions = []Definition{
	{
		EventType: EventTaskSubmitted,
		Version:   PayloadV1,
		Schema: []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["agent", "task_id", "task_name"],
  "properties": {
    "agent": {"type": "string", "minLength": 1},
    "task_id": {"type": "string", "minLength": 1},
    "task_name": {"type": "string"},
    "description": {"type": "string"}
  },
  "additionalProperties": true
}`),
	},
	{
		EventType: EventTaskCompleted,
		Version:   PayloadV1,
		Schema:    finishedSchema("completed"),
	},
	{
		EventType: EventTaskFailed,
		Version:   PayloadV1,
		Schema:    finishedSchema("failed"),
	},
}

func finishedSchema(status string) []byte {
	return []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["agent", "task_id", "status", "duration_ms"],
  "properties": {
    "agent": {"type": "string", "minLength": 1},
    "task_id": {"type": "string", "minLength": 1},
    "status": {"const": "` + status + `"},
    "error": {"type": "string"},
    "duration_ms": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": true
}`)
}

// BaseDefinitions returns the built-in schema definitions.
func BaseDefinitions() []Definition {
	defs := make([]Definition, len(baseDefinitions))
	copy(defs, baseDefinitions)
	return defs
}

// RegisterBaseSchemas loads the task lifecycle schemas into the provided registry.
func RegisterBaseSchemas(reg *SchemaRegistry) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	for _, def := range baseDefinitions {
		if err := reg.Register(def.EventType, def.Version, def.Schema); err != nil {
			return fmt.Errorf("register %s %s: %w", def.EventType, def.Version, err)
		}
	}
	return nil
}
