package resilience

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker guards calls to a flaky dependency. A disabled breaker passes every call through.
type Breaker struct {
	cb      *gobreaker.CircuitBreaker
	enabled bool
}

// BreakerOption customizes the underlying gobreaker settings.
type BreakerOption func(*gobreaker.Settings)

// CountFailures restricts which errors trip the breaker. Other errors are
// returned to the caller but recorded as successes.
func CountFailures(isFailure func(error) bool) BreakerOption {
	return func(s *gobreaker.Settings) {
		if isFailure == nil {
			return
		}
		s.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}
}

// OnStateChange registers a callback fired on every transition.
func OnStateChange(fn func(name, from, to string)) BreakerOption {
	return func(s *gobreaker.Settings) {
		if fn == nil {
			return
		}
		s.OnStateChange = func(name string, from, to gobreaker.State) {
			fn(name, from.String(), to.String())
		}
	}
}

func NewBreaker(name string, cfg CircuitBreakerConfig, opts ...BreakerOption) *Breaker {
	cfg = cfg.withDefaults()
	threshold := uint32(cfg.FailureThreshold)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.HalfOpenMaxReq),
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &Breaker{
		cb:      gobreaker.NewCircuitBreaker(settings),
		enabled: cfg.Enabled,
	}
}

// State is one of "closed", "half-open", "open", or "disabled".
func (b *Breaker) State() string {
	if b == nil || !b.enabled {
		return "disabled"
	}
	return b.cb.State().String()
}

// Execute runs fn through the breaker.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil || !b.enabled {
		return fn()
	}

	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrCircuitOpen, b.cb.Name())
	}
	if err != nil {
		var zero T
		if typed, ok := out.(T); ok {
			return typed, err
		}
		return zero, err
	}
	return out.(T), nil
}
