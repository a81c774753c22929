package resilience

import (
	"context"
	"errors"
	"testing"
)

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("disk full")
		})
	}
}

func TestCircuitBreaker_ClosedState_PassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	var calls int
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	failN(cb, 3)

	if cb.State() != CircuitOpen {
		t.Errorf("expected open state after 3 failures, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	failN(cb, 2)
	if cb.ConsecutiveFailures() != 2 {
		t.Fatalf("expected 2 failures, got %d", cb.ConsecutiveFailures())
	}
	_ = cb.Execute(context.Background(), func(_ context.Context) error { return nil })
	failN(cb, 2)

	if cb.State() != CircuitClosed {
		t.Errorf("non-consecutive failures must not open the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_StaysOpenAfterSuccessAttempts(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	failN(cb, 1)

	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func(_ context.Context) error { return nil })
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	}
	if cb.State() != CircuitOpen {
		t.Errorf("expected open state, got %s", cb.State())
	}
	if cb.ConsecutiveFailures() != 1 {
		t.Errorf("rejected calls must not change the streak, got %d", cb.ConsecutiveFailures())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	failN(cb, 5)

	want := []string{"closed->open"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestLedgerBreaker_Disabled(t *testing.T) {
	cb := LedgerBreaker(0, nil)
	if cb != nil {
		t.Fatal("expected nil breaker when max failures is 0")
	}

	// A nil breaker runs every call and never opens.
	for i := 0; i < 10; i++ {
		err := cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("disk full")
		})
		if errors.Is(err, ErrCircuitOpen) {
			t.Fatal("nil breaker must never reject")
		}
	}
	if cb.State() != CircuitClosed || cb.ConsecutiveFailures() != 0 {
		t.Error("nil breaker must report closed with no failures")
	}
}

func TestLedgerBreaker_Enabled(t *testing.T) {
	cb := LedgerBreaker(2, nil)
	failN(cb, 2)
	if cb.State() != CircuitOpen {
		t.Errorf("expected open state, got %s", cb.State())
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitState(99): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
