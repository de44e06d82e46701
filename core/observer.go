package core

import "time"

// Observer receives status transition events for observability. Observers
// must be fast and must never influence scheduling decisions; the scheduler
// invokes them synchronously while holding no locks.
type Observer interface {
	// OnTaskTransition fires on every task status change. Duration is zero
	// for non-terminal transitions.
	OnTaskTransition(taskID string, kind string, status TaskStatus, duration time.Duration)

	// OnWorkflowDone fires once when a workflow reaches termination.
	OnWorkflowDone(workflowID string, status WorkflowStatus, duration time.Duration)
}

// NoOpObserver discards all events. Used when no observer is configured.
type NoOpObserver struct{}

// OnTaskTransition implements Observer.
func (NoOpObserver) OnTaskTransition(string, string, TaskStatus, time.Duration) {}

// OnWorkflowDone implements Observer.
func (NoOpObserver) OnWorkflowDone(string, WorkflowStatus, time.Duration) {}
