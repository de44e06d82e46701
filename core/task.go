package core

import "time"

// TaskStatus represents the scheduling state of a task. Pending is initial;
// Completed, Failed, Skipped and Cancelled are terminal.
type TaskStatus int

const (
	// TaskPending means the task is waiting for dependencies.
	TaskPending TaskStatus = iota
	// TaskReady means all dependencies completed; the task is queued.
	TaskReady
	// TaskRunning means an attempt is in flight.
	TaskRunning
	// TaskRetrying means an attempt failed and the next one is scheduled
	// after the backoff interval. Counted as in flight for concurrency.
	TaskRetrying
	// TaskCompleted means the task finished successfully.
	TaskCompleted
	// TaskFailed means the task failed with retries exhausted.
	TaskFailed
	// TaskSkipped means a dependency failed or was cancelled and the task
	// was never dispatched.
	TaskSkipped
	// TaskCancelled means the task was aborted by cancellation.
	TaskCancelled
)

// String returns the wire name of the status.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskRetrying:
		return "retrying"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskSkipped:
		return "skipped"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskSkipped, TaskCancelled:
		return true
	default:
		return false
	}
}

// MarshalText encodes the status by name so results serialize readably.
func (s TaskStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// RetryPolicy shapes the retry behavior of a single task. Backoff is
// exponential with jitter; the exact curve is policy, not a constant.
type RetryPolicy struct {
	MaxAttempts    int           // Total attempts including the first (min 1)
	InitialBackoff time.Duration // Delay before the first retry
	MaxBackoff     time.Duration // Upper bound for the backoff interval
	Multiplier     float64       // Growth factor between retries
	Jitter         float64       // Randomization factor in [0,1)
}

// DefaultRetryPolicy mirrors the engine-wide defaults: three attempts,
// exponential growth from 100ms capped at 10s, half-interval jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.5,
	}
}

// DefaultTaskTimeout bounds a single attempt when the spec does not override it.
const DefaultTaskTimeout = 5 * time.Minute

// Task is the atomic unit of scheduling: one agent invocation plus its
// dependency, retry and timeout metadata. A task is owned by the workflow
// that declared it and its Status is mutated only by the scheduler.
type Task struct {
	ID        string
	AgentKind string
	Input     Payload
	DependsOn []string
	Retry     RetryPolicy
	Timeout   time.Duration
	Status    TaskStatus
}
