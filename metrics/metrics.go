// Package metrics exports execution metrics to Prometheus. The Observer
// implements core.Observer, so wiring it into a scheduler is one option; it
// never influences scheduling decisions.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tzervas/taskflow/core"
)

// Options configures the Prometheus observer.
type Options struct {
	// Registerer receives the collectors. Defaults to the global registerer.
	Registerer prometheus.Registerer
	// Namespace prefixes every metric name.
	Namespace string
}

// Observer bridges scheduler transition events to Prometheus collectors.
type Observer struct {
	taskTransitions *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	tasksInFlight   prometheus.Gauge
	workflows       *prometheus.CounterVec
	workflowSeconds *prometheus.HistogramVec

	mu      sync.Mutex
	running map[string]struct{}
}

// NewObserver creates and registers the collectors.
func NewObserver(optFns ...func(o *Options)) *Observer {
	opts := Options{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  "taskflow",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	factory := promauto.With(opts.Registerer)

	return &Observer{
		taskTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "task_transitions_total",
			Help:      "Task status transitions by agent kind and resulting status.",
		}, []string{"agent_kind", "status"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of terminal tasks by agent kind and terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"agent_kind", "status"}),
		tasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "tasks_in_flight",
			Help:      "Tasks currently running or retrying.",
		}),
		workflows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "workflow_executions_total",
			Help:      "Finished workflows by terminal status.",
		}, []string{"status"}),
		workflowSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Wall time of finished workflows by terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"status"}),
		running: make(map[string]struct{}),
	}
}

// OnTaskTransition implements core.Observer.
func (o *Observer) OnTaskTransition(taskID, kind string, status core.TaskStatus, duration time.Duration) {
	o.taskTransitions.WithLabelValues(kind, status.String()).Inc()

	switch {
	case status == core.TaskRunning:
		o.mu.Lock()
		if _, ok := o.running[taskID]; !ok {
			o.running[taskID] = struct{}{}
			o.tasksInFlight.Inc()
		}
		o.mu.Unlock()

	case status.Terminal():
		o.mu.Lock()
		if _, ok := o.running[taskID]; ok {
			delete(o.running, taskID)
			o.tasksInFlight.Dec()
		}
		o.mu.Unlock()
		o.taskDuration.WithLabelValues(kind, status.String()).Observe(duration.Seconds())
	}
}

// OnWorkflowDone implements core.Observer.
func (o *Observer) OnWorkflowDone(_ string, status core.WorkflowStatus, duration time.Duration) {
	o.workflows.WithLabelValues(string(status)).Inc()
	o.workflowSeconds.WithLabelValues(string(status)).Observe(duration.Seconds())
}
