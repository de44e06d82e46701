package core

import "context"

// Agent is the unit of work execution in taskflow. The scheduler treats every
// agent as a black box: it supplies the task input and an attempt context
// carrying the deadline, and receives an output payload or an error.
//
// Implementations must:
//   - Respect ctx cancellation and deadline; an agent must not keep the
//     underlying call in flight after returning.
//   - Classify failures by returning a *Error with the appropriate Kind.
//     Plain errors are treated as Transient and retried per policy.
//   - Be safe for concurrent use, or be produced fresh per task by their
//     Factory.
type Agent interface {
	// Kind returns the agent-kind tag under which this agent is registered.
	Kind() string

	// Execute performs one attempt of a task. The context carries the
	// attempt deadline (task timeout) and is cancelled when the task or
	// workflow is cancelled.
	Execute(ctx context.Context, input Payload) (Payload, error)
}

// Factory produces Agent instances for the registry. A factory is invoked
// once per task dispatch unless the implementation chooses to return a shared
// pooled instance.
type Factory func() Agent
