// Package ollama provides an Ollama-backed embedder for deployments that
// want model embeddings instead of the built-in hashed ones.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/indispare/quotation-rag/engine/embedding"
	"github.com/indispare/quotation-rag/pkg/resilience"
)

// Embedder calls Ollama's /api/embeddings endpoint. It satisfies
// embedding.Embedder, so it can replace the local hashed embedder behind the
// same pipeline. A circuit breaker guards the HTTP call; once Ollama starts
// failing, ingest fails fast instead of queueing slow timeouts.
type Embedder struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
	breaker *resilience.Breaker
}

// New creates an Ollama embedder. dim must match the chosen model's output
// dimension; a store opened for one dimension rejects vectors of another.
func New(baseURL, model string, dim int) *Embedder {
	return &Embedder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		dim:     dim,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: resilience.NewBreaker(resilience.BreakerOpts{Timeout: 15 * time.Second}),
	}
}

// Dimension returns the configured vector dimension.
func (e *Embedder) Dimension() int { return e.dim }

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the model embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyText
	}

	var vec []float32
	err := e.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		vec, callErr = e.call(ctx, text)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(vec) != e.dim {
		return nil, fmt.Errorf("ollama: model %s returned %d dims, want %d", e.model, len(vec), e.dim)
	}
	return vec, nil
}

func (e *Embedder) call(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: embed: status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
