package executor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

//go:embed plan_schema.json
var planSchemaJSON string

//go:embed step_schema.json
var stepSchemaJSON string

var (
	compileOnce sync.Once
	planSchema  *jsonschema.Schema
	stepSchema  *jsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("plan_schema.json", strings.NewReader(planSchemaJSON)); err != nil {
		compileErr = fmt.Errorf("add plan schema resource: %w", err)
		return
	}
	if err := compiler.AddResource("step_schema.json", strings.NewReader(stepSchemaJSON)); err != nil {
		compileErr = fmt.Errorf("add step schema resource: %w", err)
		return
	}
	if planSchema, compileErr = compiler.Compile("plan_schema.json"); compileErr != nil {
		compileErr = fmt.Errorf("compile plan schema: %w", compileErr)
		return
	}
	if stepSchema, compileErr = compiler.Compile("step_schema.json"); compileErr != nil {
		compileErr = fmt.Errorf("compile step schema: %w", compileErr)
	}
}

// ValidatePlan reports whether plan has plan_id, title and a steps array whose
// every element is a valid step.
func ValidatePlan(plan agent.Params) bool {
	return PlanErrors(plan) == nil
}

// ValidateStep reports whether step has step_id, title and description.
func ValidateStep(step agent.Params) bool {
	return StepErrors(step) == nil
}

// PlanErrors returns the schema violation of plan, or nil when it is valid.
func PlanErrors(plan agent.Params) error {
	return validate(plan, func() *jsonschema.Schema { return planSchema })
}

// StepErrors returns the schema violation of step, or nil when it is valid.
func StepErrors(step agent.Params) error {
	return validate(step, func() *jsonschema.Schema { return stepSchema })
}

func validate(doc agent.Params, schema func() *jsonschema.Schema) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}
	if doc == nil {
		return fmt.Errorf("document is missing")
	}
	normalized, err := normalize(doc)
	if err != nil {
		return err
	}
	return schema().Validate(normalized)
}

// normalize converts Go values into the plain JSON types the validator walks.
func normalize(doc agent.Params) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("document is not JSON encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("document is not valid JSON: %w", err)
	}
	return out, nil
}
