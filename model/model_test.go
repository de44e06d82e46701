package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModelCannedResponse(t *testing.T) {
	m := NewMockModel("test-model")
	m.AddResponse("what is caching", "storing results for reuse")

	resp, err := m.Complete(context.Background(), Request{Prompt: "what is caching"})
	require.NoError(t, err)
	assert.Equal(t, "storing results for reuse", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 1, m.Calls())
}

func TestMockModelEchoesUnknownPrompt(t *testing.T) {
	m := NewMockModel("test-model")

	resp, err := m.Complete(context.Background(), Request{Prompt: "unexpected"})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "unexpected")
}

func TestMockModelFailWith(t *testing.T) {
	m := NewMockModel("test-model")
	boom := errors.New("backend down")
	m.FailWith(boom)

	_, err := m.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, boom)

	m.FailWith(nil)
	_, err = m.Complete(context.Background(), Request{Prompt: "hi"})
	assert.NoError(t, err)
}

func TestMockModelObservesCancellation(t *testing.T) {
	m := NewMockModel("test-model")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, Request{Prompt: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m.Calls(), "a cancelled call never reaches the backend")
}

func TestMockModelInfo(t *testing.T) {
	m := NewMockModel("test-model")
	assert.Equal(t, Info{Name: "test-model", Provider: "mock"}, m.Info())
}
