package native

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzervas/taskflow/core"
)

func echoInvoker() Invoker {
	return InvokerFunc(func(_ context.Context, kind string, input json.RawMessage) (json.RawMessage, error) {
		out, _ := json.Marshal(map[string]any{"kind": kind, "echo": string(input)})
		return out, nil
	})
}

func decodeReports(t *testing.T, data []byte) []TaskReport {
	t.Helper()
	var reports []TaskReport
	require.NoError(t, json.Unmarshal(data, &reports))
	return reports
}

func TestExecuteTaskRoundTrip(t *testing.T) {
	rt := NewRuntime(echoInvoker())

	descriptor := []byte(`{"id": "t1", "agent_kind": "research", "input": {"topic": "go"}}`)
	data, err := rt.ExecuteTask(context.Background(), descriptor)
	require.NoError(t, err)

	var report TaskReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "t1", report.TaskID)
	assert.Equal(t, "completed", report.Status)
	assert.Nil(t, report.Error)
	assert.Contains(t, string(report.Output), "research")
}

func TestExecuteTaskRejectsMalformedDescriptor(t *testing.T) {
	rt := NewRuntime(echoInvoker())

	_, err := rt.ExecuteTask(context.Background(), []byte(`{`))
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))

	_, err = rt.ExecuteTask(context.Background(), []byte(`{"id": "t1"}`))
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
}

func TestExecuteParallelReportsExactlyOncePerTask(t *testing.T) {
	var calls atomic.Int32
	rt := NewRuntime(InvokerFunc(func(_ context.Context, kind string, _ json.RawMessage) (json.RawMessage, error) {
		calls.Add(1)
		if kind == "broken" {
			return nil, core.NewError(core.ErrorKindPermanent, "backend rejected")
		}
		return json.RawMessage(`{"ok": true}`), nil
	}))

	descriptors := []byte(`[
		{"id": "a", "agent_kind": "ok"},
		{"id": "b", "agent_kind": "broken"},
		{"id": "c", "agent_kind": "ok"}
	]`)

	data, err := rt.ExecuteParallel(context.Background(), descriptors)
	require.NoError(t, err)

	reports := decodeReports(t, data)
	require.Len(t, reports, 3)
	assert.Equal(t, int32(3), calls.Load())

	// Reports come back in descriptor order.
	assert.Equal(t, []string{"a", "b", "c"}, []string{reports[0].TaskID, reports[1].TaskID, reports[2].TaskID})
	assert.Equal(t, "completed", reports[0].Status)
	assert.Equal(t, "failed", reports[1].Status)
	require.NotNil(t, reports[1].Error)
	assert.Equal(t, core.ErrorKindPermanent, reports[1].Error.Kind)
	assert.Equal(t, "completed", reports[2].Status)
}

func TestExecuteParallelRejectsDuplicateIDs(t *testing.T) {
	rt := NewRuntime(echoInvoker())

	_, err := rt.ExecuteParallel(context.Background(), []byte(`[
		{"id": "a", "agent_kind": "x"},
		{"id": "a", "agent_kind": "x"}
	]`))
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindValidation, core.KindOf(err))
}

func TestExecuteParallelBoundsWorkers(t *testing.T) {
	var inFlight, peak atomic.Int32
	rt := NewRuntime(InvokerFunc(func(ctx context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return json.RawMessage(`{}`), nil
	}), func(o *Options) { o.Workers = 2 })

	descriptors := []byte(`[
		{"id": "a", "agent_kind": "x"},
		{"id": "b", "agent_kind": "x"},
		{"id": "c", "agent_kind": "x"},
		{"id": "d", "agent_kind": "x"}
	]`)

	_, err := rt.ExecuteParallel(context.Background(), descriptors)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPanicBecomesFailureReport(t *testing.T) {
	rt := NewRuntime(InvokerFunc(func(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
		panic("agent exploded")
	}))

	data, err := rt.ExecuteTask(context.Background(), []byte(`{"id": "t1", "agent_kind": "x"}`))
	require.NoError(t, err)

	var report TaskReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "failed", report.Status)
	require.NotNil(t, report.Error)
	assert.Equal(t, core.ErrorKindPermanent, report.Error.Kind)
	assert.Contains(t, report.Error.Message, "agent exploded")
}

func TestDescriptorTimeoutSurfacesAsTimeout(t *testing.T) {
	rt := NewRuntime(InvokerFunc(func(ctx context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	data, err := rt.ExecuteTask(context.Background(), []byte(`{"id": "t1", "agent_kind": "x", "timeout_ms": 20}`))
	require.NoError(t, err)

	var report TaskReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "failed", report.Status)
	require.NotNil(t, report.Error)
	assert.Equal(t, core.ErrorKindTimeout, report.Error.Kind)
}

func TestCancelledContextReportsCancelled(t *testing.T) {
	rt := NewRuntime(echoInvoker())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data, err := rt.ExecuteParallel(ctx, []byte(`[{"id": "a", "agent_kind": "x"}]`))
	require.NoError(t, err)

	reports := decodeReports(t, data)
	require.Len(t, reports, 1)
	assert.Equal(t, "cancelled", reports[0].Status)
	require.NotNil(t, reports[0].Error)
	assert.Equal(t, core.ErrorKindCancelled, reports[0].Error.Kind)
}

func TestExecuteBatchProcessesInWaves(t *testing.T) {
	var calls atomic.Int32
	rt := NewRuntime(InvokerFunc(func(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(`{}`), nil
	}))

	descriptors := []byte(`[
		{"id": "a", "agent_kind": "x"},
		{"id": "b", "agent_kind": "x"},
		{"id": "c", "agent_kind": "x"},
		{"id": "d", "agent_kind": "x"},
		{"id": "e", "agent_kind": "x"}
	]`)

	data, err := rt.ExecuteBatch(context.Background(), descriptors, 2)
	require.NoError(t, err)

	reports := decodeReports(t, data)
	assert.Len(t, reports, 5)
	assert.Equal(t, int32(5), calls.Load())

	_, err = rt.ExecuteBatch(context.Background(), descriptors, 0)
	assert.Error(t, err)
}

func TestMetricsAggregateAcrossCalls(t *testing.T) {
	rt := NewRuntime(InvokerFunc(func(_ context.Context, kind string, _ json.RawMessage) (json.RawMessage, error) {
		if kind == "broken" {
			return nil, core.NewError(core.ErrorKindPermanent, "no")
		}
		return json.RawMessage(`{}`), nil
	}))

	_, err := rt.ExecuteTask(context.Background(), []byte(`{"id": "a", "agent_kind": "ok"}`))
	require.NoError(t, err)
	_, err = rt.ExecuteTask(context.Background(), []byte(`{"id": "b", "agent_kind": "broken"}`))
	require.NoError(t, err)

	snap := rt.Metrics()
	assert.Equal(t, uint64(2), snap.TasksExecuted)
	assert.Equal(t, uint64(1), snap.TasksFailed)
}
