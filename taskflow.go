// Package taskflow provides a high-level façade over the task orchestration
// core: an agent registry, a workflow builder and the execution engine. Most
// applications interact with this package by:
//  1. Creating a Flow via New() (optionally wiring a logger, observer or
//     circuit breakers)
//  2. Registering agent factories by kind (built-ins from the agent package
//     or custom core.Agent implementations)
//  3. Building a workflow from a spec and running it
//
// The façade delegates scheduling to scheduler.Scheduler while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a structured logger
// and a metrics observer.
package taskflow

import (
	"context"
	"encoding/json"

	"github.com/tzervas/taskflow/core"
	"github.com/tzervas/taskflow/logging"
	"github.com/tzervas/taskflow/native"
	"github.com/tzervas/taskflow/registry"
	"github.com/tzervas/taskflow/scheduler"
	"github.com/tzervas/taskflow/workflow"
)

// Options configures the Flow instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Observer receives task/workflow transition events, e.g. the
	// Prometheus observer from the metrics package. Defaults to NoOp.
	Observer core.Observer

	// Breakers enables per-agent-kind circuit breaking. Nil disables it.
	Breakers *scheduler.BreakerSet

	// NativeWorkers bounds concurrency for the serialized execution path.
	NativeWorkers int
}

// Flow is the high-level façade aggregating the registry, the scheduler and
// the native runtime. A Flow runs one workflow at a time; create one Flow
// per concurrent run.
type Flow struct {
	opts     Options
	registry *registry.Registry
	sched    *scheduler.Scheduler
	runtime  *native.Runtime
}

// New creates a new Flow instance with optional overrides.
func New(optFns ...func(o *Options)) *Flow {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		Observer:      core.NoOpObserver{},
		NativeWorkers: native.DefaultWorkers,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	reg := registry.New()

	sched := scheduler.New(reg, func(o *scheduler.Options) {
		o.Logger = opts.Logger
		o.Observer = opts.Observer
		o.Breakers = opts.Breakers
	})

	f := &Flow{opts: opts, registry: reg, sched: sched}
	f.runtime = native.NewRuntime(f.invoker(), func(o *native.Options) {
		o.Logger = opts.Logger
		o.Workers = opts.NativeWorkers
	})
	return f
}

// RegisterAgent adds an agent factory for the given kind.
func (f *Flow) RegisterAgent(kind string, factory core.Factory) {
	f.registry.Register(kind, factory)
}

// Registry exposes the underlying agent registry, e.g. for the agent
// package's RegisterDefaults.
func (f *Flow) Registry() *registry.Registry { return f.registry }

// Build validates a workflow spec against the registered agent kinds.
func (f *Flow) Build(spec workflow.Spec) (*workflow.Workflow, error) {
	return workflow.Build(spec, f.registry)
}

// BuildFile loads and validates a workflow spec from a JSON or YAML file.
func (f *Flow) BuildFile(path string) (*workflow.Workflow, error) {
	spec, err := workflow.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Build(spec)
}

// Run executes the workflow to termination.
func (f *Flow) Run(ctx context.Context, wf *workflow.Workflow) (*core.WorkflowResult, error) {
	return f.sched.Run(ctx, wf)
}

// Cancel aborts the current run, if any.
func (f *Flow) Cancel() { f.sched.Cancel() }

// CancelTask cancels a single task of the current run.
func (f *Flow) CancelTask(taskID string) error { return f.sched.CancelTask(taskID) }

// Collect rebuilds the result of the most recent terminated run.
func (f *Flow) Collect() (*core.WorkflowResult, error) { return f.sched.Collect() }

// RunSerialized executes independent tasks through the native runtime:
// a JSON descriptor array in, a JSON report array out, exactly one report
// per task. Agent kinds resolve against the same registry as Run.
func (f *Flow) RunSerialized(ctx context.Context, descriptors []byte) ([]byte, error) {
	return f.runtime.ExecuteParallel(ctx, descriptors)
}

// RunSerializedBatch is RunSerialized in sequential waves of batchSize.
func (f *Flow) RunSerializedBatch(ctx context.Context, descriptors []byte, batchSize int) ([]byte, error) {
	return f.runtime.ExecuteBatch(ctx, descriptors, batchSize)
}

// NativeMetrics returns the aggregate counters of the serialized path.
func (f *Flow) NativeMetrics() native.MetricsSnapshot { return f.runtime.Metrics() }

// invoker bridges the native runtime's serialized boundary back to the
// registry: bytes in, agent call, bytes out.
func (f *Flow) invoker() native.Invoker {
	return native.InvokerFunc(func(ctx context.Context, kind string, input json.RawMessage) (json.RawMessage, error) {
		agent, err := f.registry.Create(kind)
		if err != nil {
			return nil, err
		}

		var payload core.Payload
		if len(input) > 0 {
			if err := json.Unmarshal(input, &payload); err != nil {
				return nil, core.WrapError(core.ErrorKindValidation, "malformed task input", err)
			}
		}

		output, err := agent.Execute(ctx, payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(output)
	})
}
