package native

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tzervas/taskflow/core"
	"github.com/tzervas/taskflow/logging"
)

// Invoker is the callback through which the runtime reaches back across the
// boundary to perform one agent call. The runtime never dispatches by kind
// itself.
type Invoker interface {
	Invoke(ctx context.Context, kind string, input json.RawMessage) (json.RawMessage, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, kind string, input json.RawMessage) (json.RawMessage, error)

// Invoke calls fn.
func (fn InvokerFunc) Invoke(ctx context.Context, kind string, input json.RawMessage) (json.RawMessage, error) {
	return fn(ctx, kind, input)
}

// DefaultWorkers bounds concurrent invocations when no limit is configured.
const DefaultWorkers = 4

// Options configures a Runtime.
type Options struct {
	// Logger receives structured execution logs. Defaults to NoOp.
	Logger logging.Logger
	// Workers bounds concurrent invocations for the parallel and batch paths.
	Workers int
}

// Runtime executes serialized task descriptors through an Invoker. It keeps
// aggregate execution metrics across calls; a Runtime is safe for concurrent
// use.
type Runtime struct {
	invoker Invoker
	logger  logging.Logger
	workers int

	mu       sync.Mutex
	executed uint64
	failed   uint64
	elapsed  time.Duration
}

// NewRuntime creates a Runtime dispatching through the given invoker.
func NewRuntime(invoker Invoker, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Logger:  logging.NoOpLogger{},
		Workers: DefaultWorkers,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Runtime{
		invoker: invoker,
		logger:  opts.Logger,
		workers: opts.Workers,
	}
}

// ExecuteTask runs a single serialized descriptor and returns its serialized
// report. Invocation failures are folded into the report; the returned error
// covers boundary problems only (malformed descriptor).
func (r *Runtime) ExecuteTask(ctx context.Context, descriptor []byte) ([]byte, error) {
	var d TaskDescriptor
	if err := json.Unmarshal(descriptor, &d); err != nil {
		return nil, core.WrapError(core.ErrorKindValidation, "malformed task descriptor", err)
	}
	if d.ID == "" || d.AgentKind == "" {
		return nil, core.NewError(core.ErrorKindValidation, "task descriptor requires id and agent kind")
	}

	report := r.run(ctx, d)
	return json.Marshal(report)
}

// ExecuteParallel runs a serialized descriptor set under the worker limit and
// returns a serialized report array in descriptor order, one report per task.
func (r *Runtime) ExecuteParallel(ctx context.Context, descriptors []byte) ([]byte, error) {
	set, err := DecodeDescriptors(descriptors)
	if err != nil {
		return nil, err
	}

	reports := r.runAll(ctx, set)
	return json.Marshal(reports)
}

// ExecuteBatch runs a serialized descriptor set in sequential waves of
// batchSize, each wave bounded by the worker limit. Waves after a context
// cancellation still report, as cancelled.
func (r *Runtime) ExecuteBatch(ctx context.Context, descriptors []byte, batchSize int) ([]byte, error) {
	set, err := DecodeDescriptors(descriptors)
	if err != nil {
		return nil, err
	}
	if batchSize < 1 {
		return nil, core.Errorf(core.ErrorKindValidation, "batch size must be positive, got %d", batchSize)
	}

	reports := make([]TaskReport, 0, len(set))
	for start := 0; start < len(set); start += batchSize {
		end := start + batchSize
		if end > len(set) {
			end = len(set)
		}
		reports = append(reports, r.runAll(ctx, set[start:end])...)
	}
	return json.Marshal(reports)
}

// runAll executes one wave of descriptors concurrently. Workers never return
// errors; every outcome, including panic and cancellation, becomes a report,
// so the exactly-once guarantee holds per descriptor.
func (r *Runtime) runAll(ctx context.Context, set []TaskDescriptor) []TaskReport {
	reports := make([]TaskReport, len(set))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, d := range set {
		i, d := i, d
		g.Go(func() error {
			reports[i] = r.run(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

// run performs one invocation under the descriptor's deadline and folds the
// outcome into a report.
func (r *Runtime) run(ctx context.Context, d TaskDescriptor) (report TaskReport) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("invoker panic", "task_id", d.ID, "agent_kind", d.AgentKind, "panic", fmt.Sprint(rec))
			report = failureReport(d.ID,
				core.Errorf(core.ErrorKindPermanent, "invoker panic: %v", rec),
				time.Since(start).Milliseconds())
			r.record(report, time.Since(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		report = failureReport(d.ID,
			core.WrapError(core.ErrorKindCancelled, "execution cancelled before dispatch", err), 0)
		r.record(report, 0)
		return report
	}

	invokeCtx := ctx
	if d.TimeoutMS > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, time.Duration(d.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	output, err := r.invoker.Invoke(invokeCtx, d.AgentKind, d.Input)
	elapsed := time.Since(start)

	if err != nil {
		taskErr := core.AsError(err)
		if ctx.Err() != nil {
			taskErr = core.WrapError(core.ErrorKindCancelled, "execution cancelled", err)
		}
		r.logger.Debug("native task failed",
			"task_id", d.ID, "agent_kind", d.AgentKind, "kind", string(taskErr.Kind))
		report = failureReport(d.ID, taskErr, elapsed.Milliseconds())
		r.record(report, elapsed)
		return report
	}

	report = TaskReport{
		TaskID:     d.ID,
		Status:     statusCompleted,
		Output:     output,
		DurationMS: elapsed.Milliseconds(),
	}
	r.record(report, elapsed)
	return report
}

func (r *Runtime) record(report TaskReport, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed++
	if report.Status != statusCompleted {
		r.failed++
	}
	r.elapsed += elapsed
}

// MetricsSnapshot is the aggregate view of everything a Runtime has executed.
type MetricsSnapshot struct {
	TasksExecuted   uint64  `json:"tasks_executed"`
	TasksFailed     uint64  `json:"tasks_failed"`
	TotalDurationMS int64   `json:"total_duration_ms"`
	AvgDurationMS   float64 `json:"avg_duration_ms"`
}

// Metrics returns a snapshot of the runtime's aggregate counters.
func (r *Runtime) Metrics() MetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := MetricsSnapshot{
		TasksExecuted:   r.executed,
		TasksFailed:     r.failed,
		TotalDurationMS: r.elapsed.Milliseconds(),
	}
	if r.executed > 0 {
		snap.AvgDurationMS = float64(snap.TotalDurationMS) / float64(r.executed)
	}
	return snap
}
