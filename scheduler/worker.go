package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tzervas/taskflow/core"
)

// runTask drives the attempt loop for a single task and reports the terminal
// outcome over events. It receives a copy of the task; shared state stays
// with the event loop.
func (s *Scheduler) runTask(ctx context.Context, t core.Task, agent core.Agent, events chan<- taskEvent) {
	start := time.Now()
	bo := newBackOff(t.Retry)
	budget := maxAttempts(t.Retry)

	for attempt := 1; ; attempt++ {
		out, err := s.invoke(ctx, t, agent)
		if err == nil {
			events <- taskEvent{
				taskID:   t.ID,
				output:   out,
				attempts: attempt,
				duration: time.Since(start),
			}
			return
		}

		if ctx.Err() != nil {
			// Task or workflow cancellation, regardless of how the agent
			// dressed up the error.
			events <- taskEvent{
				taskID:   t.ID,
				err:      core.WrapError(core.ErrorKindCancelled, "task cancelled", err),
				attempts: attempt,
				duration: time.Since(start),
			}
			return
		}

		taskErr := core.AsError(err)
		if attempt >= budget || !taskErr.Kind.Retriable() {
			events <- taskEvent{
				taskID:   t.ID,
				err:      taskErr,
				attempts: attempt,
				duration: time.Since(start),
			}
			return
		}

		events <- taskEvent{taskID: t.ID, retrying: true, attempt: attempt}

		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			events <- taskEvent{
				taskID:   t.ID,
				err:      core.WrapError(core.ErrorKindCancelled, "task cancelled during backoff", ctx.Err()),
				attempts: attempt,
				duration: time.Since(start),
			}
			return
		}
	}
}

// invoke performs one attempt under the task's per-attempt deadline. The
// agent runs in its own goroutine so a call that ignores its context can be
// abandoned after the cancel grace period; an abandoned goroutine finishes
// into a buffered channel and is collected normally.
func (s *Scheduler) invoke(ctx context.Context, t core.Task, agent core.Agent) (core.Payload, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	type attemptResult struct {
		out core.Payload
		err error
	}
	resCh := make(chan attemptResult, 1)

	go func() {
		out, err := s.callAgent(attemptCtx, t, agent)
		resCh <- attemptResult{out: out, err: err}
	}()

	select {
	case res := <-resCh:
		return res.out, res.err
	case <-attemptCtx.Done():
	}

	// Deadline hit or cancellation: give a cooperative agent a moment to
	// unwind before abandoning the call.
	grace := time.NewTimer(s.grace)
	defer grace.Stop()
	select {
	case res := <-resCh:
		return res.out, res.err
	case <-grace.C:
	}

	if ctx.Err() != nil {
		return nil, core.WrapError(core.ErrorKindCancelled, "agent did not observe cancellation", ctx.Err())
	}
	return nil, core.Errorf(core.ErrorKindTimeout, "agent %q exceeded attempt deadline %s", t.AgentKind, t.Timeout)
}

// callAgent executes the agent, routed through the kind's circuit breaker
// when one is configured. An open circuit is reported as Transient so the
// retry/backoff machinery naturally waits out the open window.
func (s *Scheduler) callAgent(ctx context.Context, t core.Task, agent core.Agent) (core.Payload, error) {
	if s.breakers == nil {
		return agent.Execute(ctx, t.Input)
	}

	cb := s.breakers.Get(t.AgentKind)
	v, err := cb.Execute(func() (any, error) {
		return agent.Execute(ctx, t.Input)
	})
	if err != nil {
		if isBreakerOpen(err) {
			return nil, core.WrapError(core.ErrorKindTransient,
				fmt.Sprintf("circuit open for agent kind %q", t.AgentKind), err)
		}
		return nil, err
	}
	out, _ := v.(core.Payload)
	return out, nil
}
