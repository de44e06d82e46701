package scheduler

import (
	"errors"

	"github.com/tzervas/taskflow/core"
)

// buildResult folds the terminal state of a run into a WorkflowResult. Every
// task has an outcome entry by the time the event loop exits.
func buildResult(st *runState) *core.WorkflowResult {
	result := &core.WorkflowResult{
		WorkflowID: st.wf.ID(),
		Tasks:      make(map[string]core.TaskOutcome, len(st.outcomes)),
		Duration:   st.elapsed,
	}

	completed := 0
	for id, outcome := range st.outcomes {
		result.Tasks[id] = outcome
		if outcome.Status == core.TaskCompleted {
			completed++
		}
	}

	switch {
	case st.externalCancel:
		result.Status = core.WorkflowCancelled
	case completed == len(st.outcomes):
		result.Status = core.WorkflowCompleted
	case completed > 0:
		result.Status = core.WorkflowPartialSuccess
	default:
		result.Status = core.WorkflowFailed
	}

	return result
}

// Collect rebuilds the result of the most recent run. It is idempotent:
// repeated calls return equal values, each with its own Tasks map. Collect
// fails until a run has terminated.
func (s *Scheduler) Collect() (*core.WorkflowResult, error) {
	s.mu.Lock()
	st := s.state
	done := st != nil && st.done
	s.mu.Unlock()

	if st == nil {
		return nil, errors.New("scheduler: no workflow has run")
	}
	if !done {
		return nil, errors.New("scheduler: workflow still running")
	}
	return buildResult(st), nil
}
