package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker("nbastats", CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	fail := func() (int, error) { return 0, errTransient }
	for i := 0; i < 2; i++ {
		if _, err := Execute(b, fail); !errors.Is(err, errTransient) {
			t.Fatalf("expected transient error on attempt %d, got %v", i, err)
		}
	}
	if state := b.State(); state != "open" {
		t.Fatalf("expected open state, got %s", state)
	}

	calls := 0
	_, err := Execute(b, func() (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected call to be short-circuited")
	}
}

func TestBreaker_IgnoresNonCountedFailures(t *testing.T) {
	t.Parallel()

	errBadRequest := errors.New("bad request")
	b := NewBreaker("nbastats", CircuitBreakerConfig{Enabled: true, FailureThreshold: 1}, CountFailures(func(err error) bool {
		return errors.Is(err, errTransient)
	}))

	for i := 0; i < 3; i++ {
		if _, err := Execute(b, func() (string, error) { return "", errBadRequest }); !errors.Is(err, errBadRequest) {
			t.Fatalf("expected bad request error, got %v", err)
		}
	}
	if state := b.State(); state != "closed" {
		t.Fatalf("expected closed state, got %s", state)
	}
}

func TestBreaker_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	b := NewBreaker("nbastats", CircuitBreakerConfig{Enabled: false, FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		_, _ = Execute(b, func() (int, error) { return 0, errTransient })
	}
	got, err := Execute(b, func() (int, error) { return 5, nil })
	if err != nil || got != 5 {
		t.Fatalf("expected pass-through result, got %d %v", got, err)
	}
	if b.State() != "disabled" {
		t.Fatalf("expected disabled state, got %s", b.State())
	}
}

func TestCircuitBreakerConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	got := CircuitBreakerConfig{Enabled: true, FailureThreshold: -1}.withDefaults()
	if got.FailureThreshold != defaultFailureThreshold || got.OpenTimeout != defaultOpenTimeout || got.HalfOpenMaxReq != defaultHalfOpenMaxReq {
		t.Fatalf("expected defaults, got %+v", got)
	}

	kept := CircuitBreakerConfig{FailureThreshold: 3, OpenTimeout: time.Second, HalfOpenMaxReq: 2}.withDefaults()
	if kept.FailureThreshold != 3 || kept.OpenTimeout != time.Second || kept.HalfOpenMaxReq != 2 {
		t.Fatalf("expected explicit values kept, got %+v", kept)
	}
}
