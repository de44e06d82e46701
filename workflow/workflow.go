package workflow

import (
	"time"

	"github.com/gammazero/toposort"
	"github.com/google/uuid"

	"github.com/tzervas/taskflow/core"
)

// FailurePolicy controls whether unrelated branches keep running after a
// task fails. Dependents of a failed task are always skipped; the policy
// only decides the fate of the rest of the graph.
type FailurePolicy string

const (
	// FailFast aborts the whole workflow on the first failure: dependents
	// of the failed task are skipped, everything else still non-terminal is
	// cancelled.
	FailFast FailurePolicy = "fail-fast"
	// ContinueOnError skips only the dependents of a failed task; unrelated
	// branches run to completion.
	ContinueOnError FailurePolicy = "continue-on-error"
)

// DefaultConcurrencyLimit bounds in-flight agent calls when the spec does
// not set one.
const DefaultConcurrencyLimit = 4

// TaskSpec declares one task of a workflow.
type TaskSpec struct {
	ID          string       `json:"id" yaml:"id"`
	AgentKind   string       `json:"agent_kind" yaml:"agent_kind"`
	Input       core.Payload `json:"input,omitempty" yaml:"input,omitempty"`
	DependsOn   []string     `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	TimeoutMS   int64        `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	MaxAttempts int          `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	BackoffMS   int64        `json:"backoff_ms,omitempty" yaml:"backoff_ms,omitempty"`
}

// Spec declares a whole workflow.
type Spec struct {
	Tasks             []TaskSpec    `json:"tasks" yaml:"tasks"`
	FailurePolicy     FailurePolicy `json:"failure_policy,omitempty" yaml:"failure_policy,omitempty"`
	ConcurrencyLimit  int           `json:"concurrency_limit,omitempty" yaml:"concurrency_limit,omitempty"`
	WorkflowTimeoutMS int64         `json:"workflow_timeout_ms,omitempty" yaml:"workflow_timeout_ms,omitempty"`
}

// KindChecker is the slice of the agent registry the builder needs: the
// ability to check that a kind is registered.
type KindChecker interface {
	Has(kind string) bool
}

// Workflow is an immutable directed acyclic graph of tasks. All accessors
// return copies; the struct is safe to share across goroutines.
type Workflow struct {
	id          string
	tasks       map[string]core.Task
	order       []string
	dependents  map[string][]string
	policy      FailurePolicy
	concurrency int
	timeout     time.Duration
}

// Build validates a spec and constructs a Workflow. kinds may be nil to skip
// agent-kind validation (used by tests and by the native path, which
// re-validates at the boundary). All violations surface as Validation-kind
// errors and nothing is returned on failure.
func Build(spec Spec, kinds KindChecker) (*Workflow, error) {
	if len(spec.Tasks) == 0 {
		return nil, core.NewError(core.ErrorKindValidation, "workflow must contain at least one task")
	}

	policy := spec.FailurePolicy
	if policy == "" {
		policy = FailFast
	}
	if policy != FailFast && policy != ContinueOnError {
		return nil, core.Errorf(core.ErrorKindValidation, "unknown failure policy %q", policy)
	}

	tasks := make(map[string]core.Task, len(spec.Tasks))
	for _, ts := range spec.Tasks {
		if ts.ID == "" {
			return nil, core.NewError(core.ErrorKindValidation, "task id must not be empty")
		}
		if _, dup := tasks[ts.ID]; dup {
			return nil, core.Errorf(core.ErrorKindValidation, "duplicate task id %q", ts.ID)
		}
		if kinds != nil && !kinds.Has(ts.AgentKind) {
			return nil, core.Errorf(core.ErrorKindValidation, "task %q references unknown agent kind %q", ts.ID, ts.AgentKind)
		}
		tasks[ts.ID] = buildTask(ts)
	}

	dependents := make(map[string][]string)
	for _, ts := range spec.Tasks {
		for _, dep := range ts.DependsOn {
			if _, ok := tasks[dep]; !ok {
				return nil, core.Errorf(core.ErrorKindValidation, "task %q depends on non-existent task %q", ts.ID, dep)
			}
			if dep == ts.ID {
				return nil, core.Errorf(core.ErrorKindValidation, "task %q depends on itself", ts.ID)
			}
			dependents[dep] = append(dependents[dep], ts.ID)
		}
	}

	order, err := sortTasks(spec.Tasks)
	if err != nil {
		return nil, err
	}

	return &Workflow{
		id:          uuid.NewString(),
		tasks:       tasks,
		order:       order,
		dependents:  dependents,
		policy:      policy,
		concurrency: concurrencyLimit(spec.ConcurrencyLimit),
		timeout:     time.Duration(spec.WorkflowTimeoutMS) * time.Millisecond,
	}, nil
}

func buildTask(ts TaskSpec) core.Task {
	retry := core.DefaultRetryPolicy()
	if ts.MaxAttempts > 0 {
		retry.MaxAttempts = ts.MaxAttempts
	}
	if ts.BackoffMS > 0 {
		retry.InitialBackoff = time.Duration(ts.BackoffMS) * time.Millisecond
	}

	timeout := core.DefaultTaskTimeout
	if ts.TimeoutMS > 0 {
		timeout = time.Duration(ts.TimeoutMS) * time.Millisecond
	}

	return core.Task{
		ID:        ts.ID,
		AgentKind: ts.AgentKind,
		Input:     ts.Input.Clone(),
		DependsOn: append([]string(nil), ts.DependsOn...),
		Retry:     retry,
		Timeout:   timeout,
		Status:    core.TaskPending,
	}
}

// sortTasks runs a topological sort over the dependency edges, surfacing
// cycles as Validation errors.
func sortTasks(specs []TaskSpec) ([]string, error) {
	var edges []toposort.Edge
	for _, ts := range specs {
		if len(ts.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, ts.ID})
			continue
		}
		for _, dep := range ts.DependsOn {
			edges = append(edges, toposort.Edge{dep, ts.ID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, core.WrapError(core.ErrorKindValidation, "workflow contains a dependency cycle", err)
	}

	order := make([]string, 0, len(specs))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

func concurrencyLimit(n int) int {
	if n <= 0 {
		return DefaultConcurrencyLimit
	}
	return n
}

// ID returns the workflow's unique id, assigned at build time.
func (w *Workflow) ID() string { return w.id }

// Len returns the number of tasks.
func (w *Workflow) Len() int { return len(w.tasks) }

// Task returns a copy of the task with the given id.
func (w *Workflow) Task(id string) (core.Task, bool) {
	t, ok := w.tasks[id]
	if !ok {
		return core.Task{}, false
	}
	return cloneTask(t), true
}

// Order returns the task ids in a valid topological order.
func (w *Workflow) Order() []string {
	return append([]string(nil), w.order...)
}

// Dependents returns the ids of tasks that directly depend on the given id.
func (w *Workflow) Dependents(id string) []string {
	return append([]string(nil), w.dependents[id]...)
}

// Policy returns the workflow's failure policy.
func (w *Workflow) Policy() FailurePolicy { return w.policy }

// Concurrency returns the in-flight concurrency limit.
func (w *Workflow) Concurrency() int { return w.concurrency }

// Timeout returns the workflow-level timeout, or zero if unset.
func (w *Workflow) Timeout() time.Duration { return w.timeout }

// Snapshot returns a deep copy of all tasks keyed by id. The scheduler takes
// one snapshot per run and owns all status mutation on it, keeping the
// workflow itself immutable and reusable across runs.
func (w *Workflow) Snapshot() map[string]*core.Task {
	snap := make(map[string]*core.Task, len(w.tasks))
	for id, t := range w.tasks {
		ct := cloneTask(t)
		snap[id] = &ct
	}
	return snap
}

func cloneTask(t core.Task) core.Task {
	t.DependsOn = append([]string(nil), t.DependsOn...)
	t.Input = t.Input.Clone()
	return t
}
