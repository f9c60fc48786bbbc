// Package embedding turns task descriptions into vectors via an external
// embedding provider.
//
// The provider is the only external dependency on the detection hot path, so
// this package owns all the defensive machinery around it: per-attempt
// timeouts, exponential backoff, a circuit breaker, rate limiting, and a
// concurrency cap. Callers see exactly two failure modes: ErrUnavailable
// (transient, worth retrying later) and ErrRejected (the input itself was
// refused, retrying is pointless).
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrUnavailable indicates a transient provider failure (timeout, network
// error, overload). The operation may succeed if retried later.
var ErrUnavailable = errors.New("embedding provider unavailable")

// ErrRejected indicates the provider refused the input itself (bad request,
// unsupported content). Retrying with the same input will not help.
var ErrRejected = errors.New("embedding provider rejected input")

// Generator produces embedding vectors for free text
type Generator interface {
	// Embed returns the vector for one piece of text. Errors wrap either
	// ErrUnavailable or ErrRejected.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the model identifier vectors are produced with. Vectors
	// from different models are not comparable.
	Model() string
}

// ContentHash returns the hash used to detect stale vectors after a
// description edit.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Truncate caps text at maxRunes without splitting a multi-byte character.
// Embedding models have input limits well below our description cap, and the
// leading text carries most of the semantic signal anyway.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}
