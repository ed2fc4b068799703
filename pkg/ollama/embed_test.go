package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/indispare/quotation-rag/engine/embedding"
	"github.com/indispare/quotation-rag/pkg/resilience"
)

func fakeServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec := make([]float64, dim)
		for i := range vec {
			vec[i] = float64(len(req.Prompt)) / float64(i+1)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: vec})
	}))
}

func TestEmbed(t *testing.T) {
	srv := fakeServer(t, 4)
	defer srv.Close()

	e := New(srv.URL, "nomic-embed-text", 4)
	vec, err := e.Embed(context.Background(), "bearing quotation")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 4 {
		t.Fatalf("dims = %d, want 4", len(vec))
	}
	if e.Dimension() != 4 {
		t.Errorf("Dimension() = %d", e.Dimension())
	}
}

func TestEmbedEmptyText(t *testing.T) {
	e := New("http://unused", "m", 4)
	if _, err := e.Embed(context.Background(), "   "); !errors.Is(err, embedding.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := fakeServer(t, 8)
	defer srv.Close()

	e := New(srv.URL, "m", 4)
	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestEmbedServerErrorTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(srv.URL, "m", 4)
	for i := 0; i < resilience.DefaultBreakerOpts.FailThreshold; i++ {
		if _, err := e.Embed(context.Background(), "text"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if _, err := e.Embed(context.Background(), "text"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}
