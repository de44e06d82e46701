package scheduler

import (
	"github.com/cenkalti/backoff/v4"

	"github.com/tzervas/taskflow/core"
)

// newBackOff translates a task's retry policy into an exponential backoff
// with jitter. MaxElapsedTime is disabled: the attempt budget is bounded by
// MaxAttempts, not wall time.
func newBackOff(p core.RetryPolicy) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialBackoff
	bo.MaxInterval = p.MaxBackoff
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = p.Jitter
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// maxAttempts normalizes a policy's attempt budget to at least one.
func maxAttempts(p core.RetryPolicy) int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
