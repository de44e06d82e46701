package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerSetReturnsSameBreakerPerKind(t *testing.T) {
	set := NewBreakerSet()

	a := set.Get("research")
	b := set.Get("research")
	c := set.Get("review")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	set := NewBreakerSet(func(o *BreakerOptions) {
		o.ConsecutiveFailures = 2
		o.OpenTimeout = time.Hour
	})
	cb := set.Get("research")

	boom := errors.New("backend down")
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (any, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := cb.Execute(func() (any, error) { return "unreachable", nil })
	assert.True(t, isBreakerOpen(err))
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	set := NewBreakerSet(func(o *BreakerOptions) {
		o.ConsecutiveFailures = 1
		o.OpenTimeout = time.Hour
	})
	cb := set.Get("research")

	// Context errors are not backend failures and must not trip the circuit.
	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (any, error) { return nil, context.Canceled })
		require.ErrorIs(t, err, context.Canceled)
	}

	v, err := cb.Execute(func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
