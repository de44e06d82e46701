// Package ollama provides a model wrapper for a local Ollama server using
// its generate API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tzervas/taskflow/core"
	"github.com/tzervas/taskflow/model"
)

// Options configures the Ollama model adapter.
type Options struct {
	// BaseURL of the Ollama server.
	BaseURL string
	// Model is the local model tag to generate with.
	Model string
	// HTTPClient allows injecting a custom client; defaults to a client
	// with a generous timeout, generation on CPU-bound hosts is slow.
	HTTPClient *http.Client
}

// Model talks to an Ollama server's /api/generate endpoint behind the
// generic model.Model interface.
type Model struct {
	client  *http.Client
	baseURL string
	name    string
}

// NewModel creates a new Ollama model.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL: "http://localhost:11434",
		Model:   "llama3.2",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &Model{
		client:  opts.HTTPClient,
		baseURL: opts.BaseURL,
		name:    opts.Model,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete implements model.Model via a single non-streaming generate call.
func (m *Model) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	body, err := json.Marshal(generateRequest{
		Model:  m.name,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	})
	if err != nil {
		return model.Response{}, core.WrapError(core.ErrorKindPermanent, "encode ollama request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return model.Response{}, core.WrapError(core.ErrorKindPermanent, "build ollama request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.client.Do(httpReq)
	if err != nil {
		return model.Response{}, core.WrapError(core.ErrorKindTransient, "ollama request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		kind := core.ErrorKindTransient
		if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
			kind = core.ErrorKindPermanent
		}
		return model.Response{}, core.Errorf(kind, "ollama returned %d: %s", httpResp.StatusCode, bytes.TrimSpace(data))
	}

	var gen generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&gen); err != nil {
		return model.Response{}, core.WrapError(core.ErrorKindTransient, "decode ollama response", err)
	}
	if !gen.Done {
		return model.Response{}, core.NewError(core.ErrorKindTransient, "ollama response not marked done")
	}

	finishReason := gen.DoneReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return model.Response{
		Text:         gen.Response,
		FinishReason: finishReason,
		Usage: &model.Usage{
			PromptTokens:     gen.PromptEvalCount,
			CompletionTokens: gen.EvalCount,
			TotalTokens:      gen.PromptEvalCount + gen.EvalCount,
		},
	}, nil
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     fmt.Sprintf("%s@%s", m.name, m.baseURL),
		Provider: "ollama",
	}
}
