package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tzervas/taskflow/logging"
)

// BreakerSet manages one circuit breaker per agent kind so a misbehaving
// backend stops receiving calls instead of burning the retry budget of every
// task routed to it. An open circuit surfaces as a Transient error, keeping
// the task retriable once the breaker half-opens.
type BreakerSet struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	logger   logging.Logger

	maxRequests  uint32
	openTimeout  time.Duration
	failureCount uint32
}

// BreakerOptions tunes the per-kind circuit breakers.
type BreakerOptions struct {
	// Logger receives state change notifications. Defaults to NoOp.
	Logger logging.Logger
	// MaxRequests allowed through in half-open state.
	MaxRequests uint32
	// OpenTimeout is how long a tripped circuit stays open before testing
	// recovery.
	OpenTimeout time.Duration
	// ConsecutiveFailures trips the circuit.
	ConsecutiveFailures uint32
}

// NewBreakerSet creates a BreakerSet with the given options.
func NewBreakerSet(optFns ...func(o *BreakerOptions)) *BreakerSet {
	opts := BreakerOptions{
		Logger:              logging.NoOpLogger{},
		MaxRequests:         3,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &BreakerSet{
		breakers:     make(map[string]*gobreaker.CircuitBreaker),
		logger:       opts.Logger,
		maxRequests:  opts.MaxRequests,
		openTimeout:  opts.OpenTimeout,
		failureCount: opts.ConsecutiveFailures,
	}
}

// Get returns the circuit breaker for the given agent kind, creating it on
// first use.
func (s *BreakerSet) Get(kind string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[kind]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        kind,
		MaxRequests: s.maxRequests,
		Interval:    0,
		Timeout:     s.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.failureCount
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			s.logger.Warn("circuit breaker state change", "agent_kind", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is not a backend failure.
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})

	s.breakers[kind] = cb
	return cb
}

// isBreakerOpen reports whether err is the breaker refusing the call.
func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
