package native

import (
	"encoding/json"

	"github.com/tzervas/taskflow/core"
)

// TaskDescriptor is the serialized task shape crossing the boundary. The
// graph is validated before serialization; the runtime re-checks only what
// it needs (non-empty ids, no duplicates).
type TaskDescriptor struct {
	ID        string          `json:"id"`
	AgentKind string          `json:"agent_kind"`
	Input     json.RawMessage `json:"input,omitempty"`
	TimeoutMS int64           `json:"timeout_ms,omitempty"`
}

// WireError is the uniform {kind, message} error shape shared with the
// in-process result format.
type WireError struct {
	Kind    core.ErrorKind `json:"kind"`
	Message string         `json:"message"`
}

// TaskReport is the per-task result handed back across the boundary, exactly
// once per descriptor.
type TaskReport struct {
	TaskID     string          `json:"task_id"`
	Status     string          `json:"status"`
	Output     json.RawMessage `json:"output,omitempty"`
	Error      *WireError      `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// DecodeDescriptors parses a JSON array of task descriptors and validates
// the invariants the exactly-once contract depends on.
func DecodeDescriptors(data []byte) ([]TaskDescriptor, error) {
	var descriptors []TaskDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, core.WrapError(core.ErrorKindValidation, "malformed task descriptor set", err)
	}
	if len(descriptors) == 0 {
		return nil, core.NewError(core.ErrorKindValidation, "empty task descriptor set")
	}

	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, core.NewError(core.ErrorKindValidation, "task descriptor with empty id")
		}
		if _, dup := seen[d.ID]; dup {
			return nil, core.Errorf(core.ErrorKindValidation, "duplicate task descriptor id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.AgentKind == "" {
			return nil, core.Errorf(core.ErrorKindValidation, "task descriptor %q has no agent kind", d.ID)
		}
	}
	return descriptors, nil
}

func failureReport(id string, err *core.Error, durationMS int64) TaskReport {
	status := statusFailed
	if err.Kind == core.ErrorKindCancelled {
		status = statusCancelled
	}
	return TaskReport{
		TaskID:     id,
		Status:     status,
		Error:      &WireError{Kind: err.Kind, Message: err.Message},
		DurationMS: durationMS,
	}
}
