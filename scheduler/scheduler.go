package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tzervas/taskflow/core"
	"github.com/tzervas/taskflow/logging"
	"github.com/tzervas/taskflow/workflow"
)

// AgentSource is the slice of the registry the scheduler needs: producing an
// agent instance for a kind. The scheduler never inspects kinds itself.
type AgentSource interface {
	Create(kind string) (core.Agent, error)
}

// DefaultCancelGrace bounds how long a worker waits for a non-cooperative
// agent after its attempt context is done before abandoning the call.
const DefaultCancelGrace = 250 * time.Millisecond

// Options configures a Scheduler instance.
type Options struct {
	// Logger receives structured execution logs. Defaults to NoOp.
	Logger logging.Logger

	// Observer receives task/workflow transition events. Defaults to NoOp.
	// Observers never influence scheduling decisions.
	Observer core.Observer

	// Breakers enables per-agent-kind circuit breaking. Nil disables it.
	Breakers *BreakerSet

	// CancelGrace bounds the wait for agents that ignore cancellation.
	CancelGrace time.Duration
}

// Scheduler executes one workflow at a time. Multiple schedulers are
// independently constructible with no shared global state; create one per
// concurrent run (or per test).
type Scheduler struct {
	agents   AgentSource
	logger   logging.Logger
	observer core.Observer
	breakers *BreakerSet
	grace    time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	ctl      chan ctlMsg
	loopDone chan struct{}
	state    *runState
}

// New creates a Scheduler dispatching to agents from the given source.
func New(agents AgentSource, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		Observer:    core.NoOpObserver{},
		CancelGrace: DefaultCancelGrace,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Scheduler{
		agents:   agents,
		logger:   opts.Logger,
		observer: opts.Observer,
		breakers: opts.Breakers,
		grace:    opts.CancelGrace,
	}
}

// taskEvent is a worker's report to the event loop: either an intermediate
// retry notification or the terminal outcome of a task.
type taskEvent struct {
	taskID   string
	retrying bool
	attempt  int
	output   core.Payload
	err      *core.Error
	attempts int
	duration time.Duration
}

type ctlMsg struct {
	taskID string
	reply  chan error
}

// runState is the mutable state of one run. It is owned exclusively by the
// event loop; workers communicate through the events channel only.
type runState struct {
	wf          *workflow.Workflow
	tasks       map[string]*core.Task
	waiting     map[string]int // unmet dependency count per task
	ready       []string       // FIFO ready queue
	inflight    int
	terminal    int
	outcomes    map[string]core.TaskOutcome
	taskCancels map[string]context.CancelFunc
	start       time.Time

	aborted        bool          // fail-fast abort triggered
	externalCancel bool          // parent context cancelled or workflow timeout
	done           bool
	elapsed        time.Duration // frozen at termination so Collect is idempotent
}

func newRunState(wf *workflow.Workflow) *runState {
	st := &runState{
		wf:          wf,
		tasks:       wf.Snapshot(),
		waiting:     make(map[string]int, wf.Len()),
		outcomes:    make(map[string]core.TaskOutcome, wf.Len()),
		taskCancels: make(map[string]context.CancelFunc),
		start:       time.Now(),
	}
	for id, t := range st.tasks {
		st.waiting[id] = len(t.DependsOn)
	}
	return st
}

func (st *runState) finished() bool {
	return st.terminal == len(st.tasks) && st.inflight == 0
}

// popReady returns the next id still in Ready state, discarding entries that
// were skipped or cancelled while queued.
func (st *runState) popReady() (string, bool) {
	for len(st.ready) > 0 {
		id := st.ready[0]
		st.ready = st.ready[1:]
		if st.tasks[id].Status == core.TaskReady {
			return id, true
		}
	}
	return "", false
}

func (st *runState) pushFrontReady(id string) {
	st.ready = append([]string{id}, st.ready...)
}

// Run executes the workflow to termination and returns its result. The
// returned error covers invocation problems only (nil workflow, scheduler
// already busy); task failures and cancellation are reported through the
// WorkflowResult, which always carries an entry for every task.
func (s *Scheduler) Run(ctx context.Context, wf *workflow.Workflow) (*core.WorkflowResult, error) {
	if wf == nil {
		return nil, errors.New("scheduler: nil workflow")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, errors.New("scheduler: a workflow is already running")
	}
	s.running = true
	s.mu.Unlock()

	var runCancel context.CancelFunc
	var runCtx context.Context
	if wf.Timeout() > 0 {
		runCtx, runCancel = context.WithTimeout(ctx, wf.Timeout())
	} else {
		runCtx, runCancel = context.WithCancel(ctx)
	}
	defer runCancel()

	st := newRunState(wf)
	ctl := make(chan ctlMsg)
	loopDone := make(chan struct{})

	s.mu.Lock()
	s.cancel = runCancel
	s.ctl = ctl
	s.loopDone = loopDone
	s.state = st
	s.mu.Unlock()

	defer func() {
		close(loopDone)
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.ctl = nil
		s.loopDone = nil
		s.mu.Unlock()
	}()

	s.logger.Info("workflow started",
		"workflow_id", wf.ID(), "tasks", wf.Len(),
		"concurrency", wf.Concurrency(), "policy", string(wf.Policy()))

	// Seed the ready queue with tasks that have no dependencies, in
	// topological order for a stable first wave.
	for _, id := range wf.Order() {
		if st.waiting[id] == 0 {
			s.transition(st, st.tasks[id], core.TaskReady, 0)
			st.ready = append(st.ready, id)
		}
	}

	sem := semaphore.NewWeighted(int64(wf.Concurrency()))
	events := make(chan taskEvent, wf.Len())
	done := runCtx.Done()

	for !st.finished() {
		s.dispatch(runCtx, st, sem, events)
		if st.finished() {
			break
		}

		select {
		case <-done:
			done = nil // observe cancellation once
			if !st.aborted {
				st.externalCancel = true
			}
			s.cancelNonStarted(st, "workflow cancelled")

		case ev := <-events:
			if ev.retrying {
				s.handleRetrying(st, ev)
				continue
			}
			// The slot is freed here, not in the worker: releasing before
			// the loop has processed the terminal event could let dispatch
			// observe an exhausted semaphore with no wakeup left.
			sem.Release(1)
			s.handleDone(st, ev, runCancel)

		case msg := <-ctl:
			msg.reply <- s.handleCancelTask(st, msg.taskID)
		}
	}

	s.mu.Lock()
	st.elapsed = time.Since(st.start)
	st.done = true
	s.mu.Unlock()
	result := buildResult(st)
	s.observer.OnWorkflowDone(result.WorkflowID, result.Status, result.Duration)
	s.logger.Info("workflow finished",
		"workflow_id", result.WorkflowID, "status", string(result.Status),
		"duration", result.Duration, "success_rate", result.SuccessRate())

	return result, nil
}

// dispatch moves ready tasks into execution while in-flight slots remain.
func (s *Scheduler) dispatch(runCtx context.Context, st *runState, sem *semaphore.Weighted, events chan<- taskEvent) {
	for {
		id, ok := st.popReady()
		if !ok {
			if st.inflight == 0 && !st.finished() {
				// A validated DAG always has a runnable or in-flight task
				// until every task is terminal.
				panic(fmt.Sprintf("scheduler invariant violation: %d tasks stuck with nothing in flight", len(st.tasks)-st.terminal))
			}
			return
		}
		if !sem.TryAcquire(1) {
			st.pushFrontReady(id)
			return
		}

		t := st.tasks[id]
		s.assertDepsCompleted(st, t)

		agent, err := s.agents.Create(t.AgentKind)
		if err != nil {
			// Unreachable for registry-validated workflows; surface as a
			// permanent task failure rather than killing the run.
			sem.Release(1)
			s.markTerminal(st, t, core.TaskFailed, core.TaskOutcome{
				Status: core.TaskFailed,
				Err:    core.AsError(err),
			})
			s.cascadeSkip(st, t.ID)
			continue
		}

		taskCtx, cancel := context.WithCancel(runCtx)
		st.taskCancels[id] = cancel
		s.transition(st, t, core.TaskRunning, 0)
		st.inflight++

		go func(task core.Task) {
			s.runTask(taskCtx, task, agent, events)
		}(*t)
	}
}

// assertDepsCompleted enforces the core ordering invariant. A violation is a
// scheduler bug, not a user-facing failure mode.
func (s *Scheduler) assertDepsCompleted(st *runState, t *core.Task) {
	for _, dep := range t.DependsOn {
		if st.tasks[dep].Status != core.TaskCompleted {
			panic(fmt.Sprintf("scheduler invariant violation: task %q dispatched with dependency %q in state %s",
				t.ID, dep, st.tasks[dep].Status))
		}
	}
}

func (s *Scheduler) handleRetrying(st *runState, ev taskEvent) {
	t := st.tasks[ev.taskID]
	if t.Status != core.TaskRunning {
		return
	}
	t.Status = core.TaskRetrying
	s.observer.OnTaskTransition(t.ID, t.AgentKind, core.TaskRetrying, 0)
	s.logger.Debug("task retrying", "task_id", t.ID, "attempt", ev.attempt)
	// The worker transitions straight back once the backoff elapses.
	t.Status = core.TaskRunning
}

func (s *Scheduler) handleDone(st *runState, ev taskEvent, runCancel context.CancelFunc) {
	st.inflight--
	if cancel, ok := st.taskCancels[ev.taskID]; ok {
		cancel()
		delete(st.taskCancels, ev.taskID)
	}

	t := st.tasks[ev.taskID]
	outcome := core.TaskOutcome{
		Output:   ev.output,
		Err:      ev.err,
		Attempts: ev.attempts,
		Duration: ev.duration,
	}

	switch {
	case ev.err == nil:
		outcome.Status = core.TaskCompleted
		s.markTerminal(st, t, core.TaskCompleted, outcome)
		for _, dep := range st.wf.Dependents(t.ID) {
			st.waiting[dep]--
			if st.waiting[dep] == 0 && st.tasks[dep].Status == core.TaskPending {
				s.transition(st, st.tasks[dep], core.TaskReady, 0)
				st.ready = append(st.ready, dep)
			}
		}

	case ev.err.Kind == core.ErrorKindCancelled:
		outcome.Status = core.TaskCancelled
		s.markTerminal(st, t, core.TaskCancelled, outcome)
		s.cascadeSkip(st, t.ID)

	default:
		outcome.Status = core.TaskFailed
		s.markTerminal(st, t, core.TaskFailed, outcome)
		s.cascadeSkip(st, t.ID)

		if st.wf.Policy() == workflow.FailFast && !st.aborted && !st.externalCancel {
			st.aborted = true
			s.logger.Warn("fail-fast abort", "workflow_id", st.wf.ID(), "failed_task", t.ID)
			s.cancelNonStarted(st, "workflow aborted after task failure")
			runCancel()
		}
	}
}

// handleCancelTask cancels one task: queued tasks terminate immediately,
// running tasks get their context cancelled and report back through the
// normal completion path. Dependents cascade to Skipped either way.
func (s *Scheduler) handleCancelTask(st *runState, taskID string) error {
	t, ok := st.tasks[taskID]
	if !ok {
		return fmt.Errorf("scheduler: unknown task %q", taskID)
	}

	switch t.Status {
	case core.TaskRunning, core.TaskRetrying:
		if cancel, ok := st.taskCancels[taskID]; ok {
			cancel()
		}
	case core.TaskPending, core.TaskReady:
		s.markTerminal(st, t, core.TaskCancelled, core.TaskOutcome{
			Status: core.TaskCancelled,
			Err:    core.NewError(core.ErrorKindCancelled, "task cancelled"),
		})
		s.cascadeSkip(st, t.ID)
	}
	return nil
}

// cascadeSkip marks every not-yet-started dependent of causeID as Skipped,
// recording the immediate dependency that caused the cascade, and recurses.
func (s *Scheduler) cascadeSkip(st *runState, causeID string) {
	for _, id := range st.wf.Dependents(causeID) {
		t := st.tasks[id]
		if t.Status != core.TaskPending && t.Status != core.TaskReady {
			continue
		}
		s.markTerminal(st, t, core.TaskSkipped, core.TaskOutcome{
			Status: core.TaskSkipped,
			Err:    core.Errorf(core.ErrorKindDependencyFailed, "dependency %q did not complete", causeID),
		})
		s.cascadeSkip(st, id)
	}
}

// cancelNonStarted marks every Pending/Ready task as Cancelled. In-flight
// tasks are left to report through their (now cancelled) context.
func (s *Scheduler) cancelNonStarted(st *runState, reason string) {
	for _, t := range st.tasks {
		if t.Status == core.TaskPending || t.Status == core.TaskReady {
			s.markTerminal(st, t, core.TaskCancelled, core.TaskOutcome{
				Status: core.TaskCancelled,
				Err:    core.NewError(core.ErrorKindCancelled, reason),
			})
		}
	}
}

func (s *Scheduler) markTerminal(st *runState, t *core.Task, status core.TaskStatus, outcome core.TaskOutcome) {
	s.transition(st, t, status, outcome.Duration)
	st.outcomes[t.ID] = outcome
	st.terminal++
}

func (s *Scheduler) transition(st *runState, t *core.Task, status core.TaskStatus, dur time.Duration) {
	t.Status = status
	s.observer.OnTaskTransition(t.ID, t.AgentKind, status, dur)
	s.logger.Debug("task transition", "workflow_id", st.wf.ID(), "task_id", t.ID, "status", status.String())
}

// Cancel aborts the current run. Every non-terminal task transitions to
// Cancelled; in-flight agents observe cancellation through their context.
// Cancel is a no-op when nothing is running.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CancelTask cancels a single task of the current run. Its dependents
// cascade to Skipped, same as on failure.
func (s *Scheduler) CancelTask(taskID string) error {
	s.mu.Lock()
	ctl, loopDone := s.ctl, s.loopDone
	s.mu.Unlock()
	if ctl == nil {
		return errors.New("scheduler: no workflow running")
	}

	msg := ctlMsg{taskID: taskID, reply: make(chan error, 1)}
	select {
	case ctl <- msg:
		return <-msg.reply
	case <-loopDone:
		return errors.New("scheduler: workflow already finished")
	}
}
