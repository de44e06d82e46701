package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tzervas/taskflow/core"
)

func newTestObserver() (*Observer, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	obs := NewObserver(func(o *Options) {
		o.Registerer = reg
	})
	return obs, reg
}

func TestInFlightGaugeTracksRunningTasks(t *testing.T) {
	obs, _ := newTestObserver()

	obs.OnTaskTransition("a", "research", core.TaskRunning, 0)
	obs.OnTaskTransition("b", "research", core.TaskRunning, 0)
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.tasksInFlight))

	// Retrying keeps the task in flight.
	obs.OnTaskTransition("a", "research", core.TaskRetrying, 0)
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.tasksInFlight))

	obs.OnTaskTransition("a", "research", core.TaskCompleted, time.Second)
	obs.OnTaskTransition("b", "research", core.TaskFailed, time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.tasksInFlight))
}

func TestSkippedTaskNeverTouchesGauge(t *testing.T) {
	obs, _ := newTestObserver()

	obs.OnTaskTransition("a", "research", core.TaskSkipped, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.tasksInFlight))
}

func TestTransitionCounters(t *testing.T) {
	obs, _ := newTestObserver()

	obs.OnTaskTransition("a", "research", core.TaskRunning, 0)
	obs.OnTaskTransition("a", "research", core.TaskCompleted, 100*time.Millisecond)
	obs.OnTaskTransition("b", "testing", core.TaskRunning, 0)
	obs.OnTaskTransition("b", "testing", core.TaskCompleted, 100*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.taskTransitions.WithLabelValues("research", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.taskTransitions.WithLabelValues("testing", "running")))
}

func TestWorkflowCounters(t *testing.T) {
	obs, _ := newTestObserver()

	obs.OnWorkflowDone("wf-1", core.WorkflowCompleted, time.Second)
	obs.OnWorkflowDone("wf-2", core.WorkflowFailed, time.Second)
	obs.OnWorkflowDone("wf-3", core.WorkflowCompleted, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.workflows.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.workflows.WithLabelValues("failed")))
}
