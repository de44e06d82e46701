package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzervas/taskflow/core"
)

type stubAgent struct{ kind string }

func (a *stubAgent) Kind() string { return a.kind }

func (a *stubAgent) Execute(_ context.Context, input core.Payload) (core.Payload, error) {
	return input, nil
}

func TestRegistry_CreateKnownKind(t *testing.T) {
	r := New()
	r.Register("echo", func() core.Agent { return &stubAgent{kind: "echo"} })

	a, err := r.Create("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", a.Kind())
}

func TestRegistry_CreateUnknownKind(t *testing.T) {
	r := New()

	a, err := r.Create("missing")
	assert.Nil(t, a)
	require.Error(t, err)
	assert.Equal(t, core.ErrorKindUnknownAgentKind, core.KindOf(err))
}

func TestRegistry_HasAndKinds(t *testing.T) {
	r := New()
	assert.False(t, r.Has("echo"))
	assert.Empty(t, r.Kinds())

	r.Register("echo", func() core.Agent { return &stubAgent{kind: "echo"} })
	r.Register("reverse", func() core.Agent { return &stubAgent{kind: "reverse"} })

	assert.True(t, r.Has("echo"))
	assert.ElementsMatch(t, []string{"echo", "reverse"}, r.Kinds())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := New()
	r.Register("echo", func() core.Agent { return &stubAgent{kind: "first"} })
	r.Register("echo", func() core.Agent { return &stubAgent{kind: "second"} })

	a, err := r.Create("echo")
	require.NoError(t, err)
	assert.Equal(t, "second", a.Kind())
}
