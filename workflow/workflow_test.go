package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzervas/taskflow/core"
)

type kindSet map[string]bool

func (k kindSet) Has(kind string) bool { return k[kind] }

func TestBuildValidWorkflow(t *testing.T) {
	wf, err := Build(Spec{
		Tasks: []TaskSpec{
			{ID: "fetch", AgentKind: "research"},
			{ID: "summarize", AgentKind: "documentation", DependsOn: []string{"fetch"}},
			{ID: "review", AgentKind: "review", DependsOn: []string{"summarize"}},
		},
	}, kindSet{"research": true, "documentation": true, "review": true})
	require.NoError(t, err)

	assert.NotEmpty(t, wf.ID())
	assert.Equal(t, 3, wf.Len())
	assert.Equal(t, []string{"fetch", "summarize", "review"}, wf.Order())
	assert.Equal(t, []string{"summarize"}, wf.Dependents("fetch"))
	assert.Equal(t, FailFast, wf.Policy(), "fail-fast is the default policy")
	assert.Equal(t, DefaultConcurrencyLimit, wf.Concurrency())
}

func TestBuildRejectsEmptyWorkflow(t *testing.T) {
	_, err := Build(Spec{}, nil)
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	_, err := Build(Spec{
		Tasks: []TaskSpec{
			{ID: "a", AgentKind: "x"},
			{ID: "a", AgentKind: "x"},
		},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestBuildRejectsUnknownAgentKind(t *testing.T) {
	_, err := Build(Spec{
		Tasks: []TaskSpec{{ID: "a", AgentKind: "nope"}},
	}, kindSet{})
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestBuildRejectsMissingDependency(t *testing.T) {
	_, err := Build(Spec{
		Tasks: []TaskSpec{{ID: "a", AgentKind: "x", DependsOn: []string{"ghost"}}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuildRejectsSelfDependency(t *testing.T) {
	_, err := Build(Spec{
		Tasks: []TaskSpec{{ID: "a", AgentKind: "x", DependsOn: []string{"a"}}},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
}

func TestBuildRejectsCycle(t *testing.T) {
	_, err := Build(Spec{
		Tasks: []TaskSpec{
			{ID: "a", AgentKind: "x", DependsOn: []string{"c"}},
			{ID: "b", AgentKind: "x", DependsOn: []string{"a"}},
			{ID: "c", AgentKind: "x", DependsOn: []string{"b"}},
		},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuildRejectsUnknownFailurePolicy(t *testing.T) {
	_, err := Build(Spec{
		FailurePolicy: "explode",
		Tasks:         []TaskSpec{{ID: "a", AgentKind: "x"}},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
}

func TestBuildAppliesTaskDefaults(t *testing.T) {
	wf, err := Build(Spec{
		Tasks: []TaskSpec{{ID: "a", AgentKind: "x"}},
	}, nil)
	require.NoError(t, err)

	task, ok := wf.Task("a")
	require.True(t, ok)
	assert.Equal(t, core.DefaultTaskTimeout, task.Timeout)
	assert.Equal(t, core.DefaultRetryPolicy(), task.Retry)
	assert.Equal(t, core.TaskPending, task.Status)
}

func TestBuildAppliesTaskOverrides(t *testing.T) {
	wf, err := Build(Spec{
		Tasks: []TaskSpec{
			{ID: "a", AgentKind: "x", TimeoutMS: 2500, MaxAttempts: 7, BackoffMS: 50},
		},
	}, nil)
	require.NoError(t, err)

	task, _ := wf.Task("a")
	assert.Equal(t, int64(2500), task.Timeout.Milliseconds())
	assert.Equal(t, 7, task.Retry.MaxAttempts)
	assert.Equal(t, int64(50), task.Retry.InitialBackoff.Milliseconds())
}

func TestSnapshotIsIsolated(t *testing.T) {
	wf, err := Build(Spec{
		Tasks: []TaskSpec{{ID: "a", AgentKind: "x", Input: core.Payload{"k": "v"}}},
	}, nil)
	require.NoError(t, err)

	snap := wf.Snapshot()
	snap["a"].Status = core.TaskRunning
	snap["a"].Input["k"] = "mutated"

	fresh, _ := wf.Task("a")
	assert.Equal(t, core.TaskPending, fresh.Status)
	assert.Equal(t, "v", fresh.Input.String("k"))
}

func TestWorkflowIDsAreUnique(t *testing.T) {
	spec := Spec{Tasks: []TaskSpec{{ID: "a", AgentKind: "x"}}}
	first, err := Build(spec, nil)
	require.NoError(t, err)
	second, err := Build(spec, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
}
