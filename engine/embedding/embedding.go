// Package embedding defines the text embedding contract used by ingestion
// and query. Implementations must be deterministic: the same input text
// yields the same vector, because search compares vectors embedded at ingest
// time against vectors embedded at query time.
package embedding

import (
	"context"
	"errors"
)

// DefaultDimension matches the all-MiniLM-L6-v2 class of sentence models.
const DefaultDimension = 384

// MaxTextRunes is the default input length cap.
const MaxTextRunes = 8192

// Embedding failure sentinels.
var (
	ErrEmptyText   = errors.New("embedding: empty text")
	ErrTextTooLong = errors.New("embedding: text exceeds length limit")
)

// Embedder maps text to a fixed-dimension vector. Implementations must be
// safe for concurrent use and must not mutate shared state per call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
