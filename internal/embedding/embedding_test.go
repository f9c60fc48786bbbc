package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	a := ContentHash("fix login timeout")
	b := ContentHash("fix login timeout")
	c := ContentHash("fix login timeout ")

	assert.Equal(t, a, b, "hash must be deterministic")
	assert.NotEqual(t, a, c, "different text must hash differently")
	assert.Len(t, a, 64)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "hello", Truncate("hello", 0), "zero cap disables truncation")

	// Multi-byte characters are never split
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hé", Truncate("héllo", 2))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
		{"circuit open", ErrCircuitOpen, ErrUnavailable},
		{"rate limit", errors.New("429 Too Many Requests"), ErrUnavailable},
		{"server error", errors.New("500 internal server error"), ErrUnavailable},
		{"bad gateway", errors.New("502 bad gateway"), ErrUnavailable},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrUnavailable},
		{"timeout", errors.New("request timeout exceeded"), ErrUnavailable},
		{"bad request", errors.New("400 Bad Request"), ErrRejected},
		{"unauthorized", errors.New("401 unauthorized"), ErrRejected},
		{"invalid input", errors.New("invalid input length"), ErrRejected},
		{"unknown fails open", errors.New("something odd happened"), ErrUnavailable},
		{"already classified", fmt.Errorf("wrapped: %w", ErrRejected), ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.True(t, errors.Is(got, tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 100*time.Millisecond)

	assert.Equal(t, CircuitClosed, cb.GetState())
	assert.NoError(t, cb.Allow())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState(), "below threshold stays closed")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestCircuitBreakerRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())

	// After the open timeout the next Allow transitions to half-open
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.GetState())

	// Successes up to the threshold close the circuit
	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.GetState())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.GetState())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.GetState())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Second)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState(), "success resets the consecutive-failure count")
}
