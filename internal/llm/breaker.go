package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures Breaker.
type BreakerConfig struct {
	Name string
	// Failures is the number of consecutive failures that opens the circuit.
	Failures uint32
	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration
	// OnStateChange, when set, observes transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

// Breaker decorates a Client with a circuit breaker so a failing provider
// is not hammered while it is down. Caller cancellations do not count as
// failures.
type Breaker struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next.
func NewBreaker(next Client, cfg BreakerConfig) *Breaker {
	failures := cfg.Failures
	if failures == 0 {
		failures = 5
	}
	name := cfg.Name
	if name == "" {
		name = "llm"
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: cfg.OnStateChange,
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// Invoke implements Client.
func (b *Breaker) Invoke(ctx context.Context, req Request) (*Response, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Invoke(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*Response), nil
}

// State exposes the breaker state for health reporting.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

var _ Client = (*Breaker)(nil)
