// Package rag orchestrates the query path: embed a natural-language
// question, retrieve the top-K most similar quotation entries, and render a
// deterministic template-based answer over the ranked candidates. There is
// no generative model anywhere in this path.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/indispare/quotation-rag/engine/embedding"
	"github.com/indispare/quotation-rag/engine/semantic"
)

// MaxTopK caps a caller-requested result count to bound latency.
const MaxTopK = 50

// Searcher abstracts vector store retrieval.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, filter *semantic.Filter) ([]semantic.SearchResult, error)
}

// Options configures the query pipeline.
type Options struct {
	// DefaultResults is the k used when the caller does not ask for one.
	DefaultResults int
	// DisplayLimit is how many candidates the prose answer enumerates.
	DisplayLimit int
	// MinScore drops candidates scoring below it. Values <= -1 disable the
	// cutoff; that is the default, since ranking order already communicates
	// relevance and a cutoff on a sparse corpus silently empties answers.
	MinScore float64
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		DefaultResults: 5,
		DisplayLimit:   3,
		MinScore:       -1,
	}
}

// Service is the query orchestration service.
type Service struct {
	embedder embedding.Embedder
	search   Searcher
	opts     Options
	logger   *slog.Logger
}

// New creates a query Service.
func New(embedder embedding.Embedder, search Searcher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultResults <= 0 {
		opts.DefaultResults = DefaultOptions().DefaultResults
	}
	if opts.DisplayLimit <= 0 {
		opts.DisplayLimit = DefaultOptions().DisplayLimit
	}
	return &Service{embedder: embedder, search: search, opts: opts, logger: logger}
}

// Match is one ranked candidate in a query result.
type Match struct {
	ID    int64             `json:"id"`
	Score float32           `json:"score"`
	Meta  semantic.Metadata `json:"metadata"`
}

// Result is the full answer to one question: the prose answer plus the
// structured candidate list it was derived from. The structured part always
// carries at least everything the prose says.
type Result struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Matches  []Match `json:"matches"`
	Count    int     `json:"count"`
}

// Query answers a free-text question about the quotation corpus. Zero
// matches is a successful empty result, not an error; embedding or store
// failures abort the query and are returned as errors.
func (s *Service) Query(ctx context.Context, question string, maxResults int, filter *semantic.Filter) (*Result, error) {
	// Only whitespace is trimmed. Case is preserved: what the embedder does
	// with it is the embedder's business.
	question = strings.TrimSpace(question)

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embed question: %w", err)
	}

	k := maxResults
	if k <= 0 {
		k = s.opts.DefaultResults
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	candidates, err := s.search.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if s.opts.MinScore > -1 && float64(c.Score) < s.opts.MinScore {
			continue
		}
		matches = append(matches, Match{ID: c.ID, Score: c.Score, Meta: c.Meta})
	}

	s.logger.Info("query answered", "question_len", len(question), "k", k, "matches", len(matches))

	return &Result{
		Question: question,
		Answer:   synthesizeAnswer(matches, s.opts.DisplayLimit),
		Matches:  matches,
		Count:    len(matches),
	}, nil
}
