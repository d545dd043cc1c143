package agent

// Kind names the fixed set of agent variants the service ships.
type Kind string

const (
	KindCalculator     Kind = "calculator"
	KindDataProcessing Kind = "data_processing"
	KindPlanner        Kind = "planner"
	KindExecutor       Kind = "executor"
)

// UnknownTask is the result every variant returns for task names it does not serve.
func UnknownTask(task Task) Result {
	return Failed(task, "Unknown task type: "+task.Name, nil)
}
