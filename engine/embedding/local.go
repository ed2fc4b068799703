package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Local is a deterministic hashed bag-of-tokens embedder. Word tokens and
// adjacent word bigrams are FNV-1a hashed into a fixed number of buckets with
// a hash-derived sign, then L2-normalised. It has no model file to load, is
// bit-identical across runs and platforms, and gives texts with overlapping
// vocabulary a positive cosine similarity, which is exactly what the
// label-value canonical text needs for retrieval.
//
// It is the default embedder; wire pkg/ollama for a real sentence model.
type Local struct {
	dim      int
	maxRunes int
}

// NewLocal creates a Local embedder with the given dimension.
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Local{dim: dim, maxRunes: MaxTextRunes}
}

// Dimension returns the output vector length.
func (l *Local) Dimension() int { return l.dim }

// Embed implements Embedder. It fails with ErrEmptyText when the input is
// empty after trimming (or contains no token at all), and with ErrTextTooLong
// past the rune cap.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}
	if utf8.RuneCountInString(trimmed) > l.maxRunes {
		return nil, ErrTextTooLong
	}

	tokens := tokenize(trimmed)
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}

	vec := make([]float64, l.dim)
	for i, tok := range tokens {
		addFeature(vec, tok)
		if i+1 < len(tokens) {
			addFeature(vec, tok+" "+tokens[i+1])
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, l.dim)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// addFeature hashes a feature into its bucket with a sign bit, so colliding
// features cancel rather than always reinforcing.
func addFeature(vec []float64, feature string) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(len(vec)))
	if sum&(1<<63) != 0 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

// tokenize splits text into case-folded word tokens. Case folding happens
// inside the model, not in the query path: callers hand over text verbatim.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var (
	defaultOnce  sync.Once
	defaultModel *Local
)

// Default returns the process-wide shared Local model. Initialisation runs
// exactly once, concurrent first callers included.
func Default() *Local {
	defaultOnce.Do(func() {
		defaultModel = NewLocal(DefaultDimension)
	})
	return defaultModel
}
