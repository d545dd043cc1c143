package worker

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/agentea/internal/agent"
)

// Calculator evaluates add, subtract, multiply and divide over a list of operands.
type Calculator struct {
	Latency time.Duration
}

// NewCalculatorAgent builds the calculator_agent.
func NewCalculatorAgent(latency time.Duration, opts ...agent.Option) *agent.Agent {
	opts = append([]agent.Option{agent.WithKind(agent.KindCalculator)}, opts...)
	return agent.New(CalculatorName, "An agent that performs arithmetic calculations.", Calculator{Latency: latency}, opts...)
}

func (c Calculator) Execute(ctx context.Context, task agent.Task) (agent.Result, error) {
	if err := pause(ctx, c.Latency); err != nil {
		return agent.Result{}, err
	}
	if task.Name != TaskCalculate {
		return agent.UnknownTask(task), nil
	}

	op := task.Parameters.String("operation")
	raw := task.Parameters.Slice("operands")
	if op == "" || len(raw) == 0 {
		return agent.Result{}, agent.ValidationError{Message: "Missing operation or operands"}
	}
	operands, ok := task.Parameters.Numbers("operands")
	if !ok {
		return agent.Result{}, agent.ValidationError{Field: "operands", Message: "must be numbers"}
	}

	value, msg := Calculate(op, operands)
	if msg != "" {
		return agent.Failed(task, msg, nil), nil
	}
	return agent.Completed(task, agent.Params{"result": value}), nil
}

// Calculate applies op to operands. A non-empty message reports why it could not.
func Calculate(op string, operands []float64) (float64, string) {
	switch op {
	case "add":
		var sum float64
		for _, n := range operands {
			sum += n
		}
		return sum, ""
	case "subtract":
		if len(operands) < 2 {
			return 0, "Subtraction requires at least 2 operands"
		}
		out := operands[0]
		for _, n := range operands[1:] {
			out -= n
		}
		return out, ""
	case "multiply":
		out := 1.0
		for _, n := range operands {
			out *= n
		}
		return out, ""
	case "divide":
		if len(operands) < 2 {
			return 0, "Division requires at least 2 operands"
		}
		for _, n := range operands[1:] {
			if n == 0 {
				return 0, "Division by zero is not allowed"
			}
		}
		out := operands[0]
		for _, n := range operands[1:] {
			out /= n
		}
		return out, ""
	}
	return 0, "Unknown operation: " + op
}
