package orchestrator

import (
	"ytbatch/internal/task"
)

// completionEvent is the single message a worker posts to the Lifecycle
// Controller when Fetch returns.
type completionEvent struct {
	task   *task.Task
	result task.Result
}
