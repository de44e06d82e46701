package core

import (
	"encoding/json"
	"time"
)

// AgentResult captures the outcome of the final attempt of one task: the
// terminal status, the output payload on success, the structured error on
// failure, the number of attempts consumed and the total wall time.
type AgentResult struct {
	Status   TaskStatus
	Output   Payload
	Err      *Error
	Attempts int
	Duration time.Duration
}

// Success reports whether the task completed.
func (r AgentResult) Success() bool { return r.Status == TaskCompleted }

// WorkflowStatus summarizes a finished workflow.
type WorkflowStatus string

const (
	// WorkflowCompleted means every task completed.
	WorkflowCompleted WorkflowStatus = "completed"
	// WorkflowPartialSuccess means some but not all tasks completed.
	WorkflowPartialSuccess WorkflowStatus = "partial_success"
	// WorkflowFailed means no task completed.
	WorkflowFailed WorkflowStatus = "failed"
	// WorkflowCancelled means the run was cancelled before termination.
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// TaskOutcome is the per-task entry of a WorkflowResult.
type TaskOutcome struct {
	Status   TaskStatus
	Output   Payload
	Err      *Error
	Attempts int
	Duration time.Duration
}

// MarshalJSON emits the external wire shape: status by name, error as
// {kind,message}, duration in milliseconds.
func (o TaskOutcome) MarshalJSON() ([]byte, error) {
	type wireError struct {
		Kind    ErrorKind `json:"kind"`
		Message string    `json:"message"`
	}
	var we *wireError
	if o.Err != nil {
		we = &wireError{Kind: o.Err.Kind, Message: o.Err.Message}
	}
	return json.Marshal(struct {
		Status     string     `json:"status"`
		Output     Payload    `json:"output,omitempty"`
		Error      *wireError `json:"error,omitempty"`
		Attempts   int        `json:"attempts"`
		DurationMS int64      `json:"duration_ms"`
	}{
		Status:     o.Status.String(),
		Output:     o.Output,
		Error:      we,
		Attempts:   o.Attempts,
		DurationMS: o.Duration.Milliseconds(),
	})
}

// WorkflowResult maps every task id to its terminal outcome. It is produced
// once at workflow termination and read-only thereafter; the result always
// has an entry for every task so callers can distinguish "this task failed"
// from "this task was skipped because an ancestor failed".
type WorkflowResult struct {
	WorkflowID string                 `json:"workflow_id"`
	Status     WorkflowStatus         `json:"status"`
	Tasks      map[string]TaskOutcome `json:"tasks"`
	Duration   time.Duration          `json:"-"`
}

// SuccessRate returns the fraction of tasks that completed.
func (r *WorkflowResult) SuccessRate() float64 {
	if len(r.Tasks) == 0 {
		return 0
	}
	var completed int
	for _, o := range r.Tasks {
		if o.Status == TaskCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(r.Tasks))
}

// FailedTasks returns the ids of tasks that terminated as Failed.
func (r *WorkflowResult) FailedTasks() []string {
	var ids []string
	for id, o := range r.Tasks {
		if o.Status == TaskFailed {
			ids = append(ids, id)
		}
	}
	return ids
}
