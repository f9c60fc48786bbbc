package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/groupthink/groupthink/internal/config"
)

// OllamaGenerator produces embeddings via a local or remote Ollama server.
// Safe for concurrent use.
type OllamaGenerator struct {
	client         *api.Client
	cfg            config.ProviderConfig
	circuitBreaker *CircuitBreaker
	limiter        *rate.Limiter
	concurrencySem *semaphore.Weighted
}

// NewOllamaGenerator creates a generator using OLLAMA_HOST (or the default
// localhost endpoint) for the server address.
func NewOllamaGenerator(cfg config.ProviderConfig) (*OllamaGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	g := &OllamaGenerator{
		client:         client,
		cfg:            cfg,
		circuitBreaker: NewCircuitBreaker(5, 2, 30*time.Second),
	}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}
	if cfg.MaxConcurrentCalls > 0 {
		g.concurrencySem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}
	return g, nil
}

// Model returns the configured embedding model name
func (g *OllamaGenerator) Model() string {
	return g.cfg.Model
}

// Embed returns the vector for one piece of text, with truncation, rate
// limiting, retries with exponential backoff, and circuit breaking.
func (g *OllamaGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	text = Truncate(text, g.cfg.MaxInputRunes)

	if g.concurrencySem != nil {
		if err := g.concurrencySem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("failed to acquire embed slot: %w", classifyError(err))
		}
		defer g.concurrencySem.Release(1)
	}

	var vector []float32
	var lastErr error
	backoff := g.cfg.InitialBackoff

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if err := g.circuitBreaker.Allow(); err != nil {
			return nil, fmt.Errorf("embed blocked: %w", classifyError(err))
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", classifyError(err))
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
		vec, err := g.embedOnce(attemptCtx, text)
		cancel()

		if err == nil {
			g.circuitBreaker.RecordSuccess()
			if attempt > 0 {
				log.Printf("[EMBED] embed succeeded after %d retries", attempt)
			}
			vector = vec
			break
		}

		classified := classifyError(err)
		lastErr = fmt.Errorf("%v: %w", err, classified)

		// Rejections are the input's fault. They don't count against the
		// circuit breaker and retrying cannot fix them.
		if errors.Is(classified, ErrRejected) {
			return nil, lastErr
		}
		g.circuitBreaker.RecordFailure()

		if attempt == g.cfg.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embed canceled: %w", ErrUnavailable)
		}

		log.Printf("[EMBED] embed failed (attempt %d/%d), retrying in %v: %v",
			attempt+1, g.cfg.MaxRetries+1, backoff, err)

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > g.cfg.MaxBackoff {
				backoff = g.cfg.MaxBackoff
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("embed canceled during backoff: %w", ErrUnavailable)
		}
	}

	if vector == nil {
		return nil, fmt.Errorf("embed failed after %d attempts: %w", g.cfg.MaxRetries+1, lastErr)
	}
	return vector, nil
}

func (g *OllamaGenerator) embedOnce(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Embed(ctx, &api.EmbedRequest{
		Model: g.cfg.Model,
		Input: text,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("provider returned empty embedding for model %s", g.cfg.Model)
	}
	return resp.Embeddings[0], nil
}
