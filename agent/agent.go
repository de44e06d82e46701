package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tzervas/taskflow/core"
	"github.com/tzervas/taskflow/internal/util"
	"github.com/tzervas/taskflow/model"
)

// PromptBuilder turns a task's input payload into the user prompt sent to
// the model.
type PromptBuilder func(input core.Payload) (string, error)

// Options configures a ModelAgent.
type Options struct {
	// System is the instruction framing the agent's role.
	System string
	// Prompt builds the user prompt from the task input. The default uses
	// the "prompt" key when present and falls back to the JSON-encoded
	// payload.
	Prompt PromptBuilder
}

// ModelAgent executes a task by driving one completion against a backend
// model. Instances are cheap; the registry creates one per dispatch.
type ModelAgent struct {
	kind   string
	model  model.Model
	system string
	prompt PromptBuilder
}

// NewModelAgent creates an agent of the given kind backed by m.
func NewModelAgent(kind string, m model.Model, optFns ...func(o *Options)) *ModelAgent {
	opts := Options{
		Prompt: DefaultPrompt,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelAgent{
		kind:   kind,
		model:  m,
		system: opts.System,
		prompt: opts.Prompt,
	}
}

// TemplatePrompt builds prompts by expanding a text/template over the task
// input, e.g. "summarize {{.topic}} for {{.audience}}".
func TemplatePrompt(tmpl string) PromptBuilder {
	return func(input core.Payload) (string, error) {
		prompt, err := util.RenderTemplate(tmpl, input)
		if err != nil {
			return "", core.WrapError(core.ErrorKindPermanent, "render prompt template", err)
		}
		return prompt, nil
	}
}

// DefaultPrompt uses the payload's "prompt" key when present and falls back
// to the JSON-encoded payload.
func DefaultPrompt(input core.Payload) (string, error) {
	if p := input.String("prompt"); p != "" {
		return p, nil
	}
	if len(input) == 0 {
		return "", core.NewError(core.ErrorKindPermanent, "task input has no prompt")
	}
	data, err := json.Marshal(input)
	if err != nil {
		return "", core.WrapError(core.ErrorKindPermanent, "encode task input", err)
	}
	return string(data), nil
}

// Kind implements core.Agent.
func (a *ModelAgent) Kind() string { return a.kind }

// Execute implements core.Agent: one completion per invocation. Model errors
// pass through untouched so their kind classification drives retry policy.
func (a *ModelAgent) Execute(ctx context.Context, input core.Payload) (core.Payload, error) {
	prompt, err := a.prompt(input)
	if err != nil {
		return nil, err
	}

	resp, err := a.model.Complete(ctx, model.Request{
		System: a.system,
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}

	out := core.Payload{
		"text":  resp.Text,
		"model": a.model.Info().Name,
	}
	if resp.FinishReason != "" {
		out["finish_reason"] = resp.FinishReason
	}
	if resp.Usage != nil {
		out["total_tokens"] = resp.Usage.TotalTokens
	}
	return out, nil
}

// FuncAgent adapts a plain function to the core.Agent contract for custom
// in-process logic that needs no model backend.
type FuncAgent struct {
	kind string
	fn   func(ctx context.Context, input core.Payload) (core.Payload, error)
}

// NewFuncAgent wraps fn as an agent of the given kind.
func NewFuncAgent(kind string, fn func(ctx context.Context, input core.Payload) (core.Payload, error)) *FuncAgent {
	return &FuncAgent{kind: kind, fn: fn}
}

// Kind implements core.Agent.
func (a *FuncAgent) Kind() string { return a.kind }

// Execute implements core.Agent.
func (a *FuncAgent) Execute(ctx context.Context, input core.Payload) (core.Payload, error) {
	if a.fn == nil {
		return nil, core.Errorf(core.ErrorKindPermanent, "agent kind %q has no function", a.kind)
	}
	return a.fn(ctx, input)
}

// String aids debugging.
func (a *ModelAgent) String() string {
	return fmt.Sprintf("ModelAgent(%s, %s)", a.kind, a.model.Info().Name)
}
