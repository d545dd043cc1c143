package executor

import (
	"strings"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

// ExecutionPrompt renders the per-step instruction sent to the model.
func ExecutionPrompt(step agent.Params, execContext string) string {
	var b strings.Builder
	b.WriteString("Execute the following step:\n\n")
	b.WriteString("Step ID: " + text(step["step_id"]) + "\n")
	b.WriteString("Title: " + text(step["title"]) + "\n")
	b.WriteString("Description: " + text(step["description"]) + "\n")
	b.WriteString("Expected Outcome: " + text(step["expected_outcome"]) + "\n\n")
	if execContext != "" {
		b.WriteString("Context:\n" + execContext + "\n\n")
	}
	b.WriteString("Execute this step and provide a detailed output. " +
		"If you cannot complete the step, explain why and provide an error message. " +
		"Your response should include the status (completed or failed), " +
		"the output of the execution, any error messages if applicable, " +
		"and additional notes or observations.")
	return b.String()
}
