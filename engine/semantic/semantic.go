// Package semantic owns the searchable vector index: the durable mapping
// from record id to (vector, metadata, canonical text) with cosine
// nearest-neighbour retrieval. Three backends implement the same Store
// contract: an embedded SQLite store (the default system of record), Qdrant,
// and Postgres/pgvector.
package semantic

import (
	"context"
	"errors"

	"github.com/indispare/quotation-rag/engine/domain"
)

var (
	// ErrDimensionMismatch means a vector's length does not match the index
	// dimension. This implies an embedder/index version mismatch and is a
	// configuration error, not a per-record failure.
	ErrDimensionMismatch = errors.New("semantic: vector dimension mismatch")

	// ErrUnavailable means the persistence backend is unreachable. Callers
	// may retry.
	ErrUnavailable = errors.New("semantic: store unavailable")
)

// scoreEpsilon is the band inside which two similarity scores are considered
// equal and the ascending-id tie-break applies.
const scoreEpsilon = 1e-6

// Entry is one indexed vector with its metadata snapshot and the canonical
// text it was produced from.
type Entry struct {
	ID     int64
	Vector []float32
	Meta   Metadata
	Text   string
	Format int // serialize.FormatVersion at ingest time
}

// Metadata is the domain snapshot type, aliased to keep store signatures
// short.
type Metadata = domain.Metadata

// SearchResult is one ranked candidate: id, raw cosine similarity in
// [-1, 1], and the stored metadata snapshot.
type SearchResult struct {
	ID    int64    `json:"id"`
	Score float32  `json:"score"`
	Meta  Metadata `json:"metadata"`
}

// Filter restricts search candidates by exact-match metadata predicates.
// Zero-valued fields do not constrain. Filtering applies before the top-K
// cutoff, never after.
type Filter struct {
	Status        string `json:"status,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	QuotationCode string `json:"quotation_code,omitempty"`
	SellerName    string `json:"seller_name,omitempty"`
	ItemBrand     string `json:"item_brand,omitempty"`
}

// IsZero reports whether the filter constrains anything.
func (f *Filter) IsZero() bool {
	return f == nil || *f == Filter{}
}

// Store is the vector index contract.
//
// Upsert atomically inserts or replaces the entry for its id; the store
// never holds two live entries for one id. Search returns up to k results by
// descending cosine similarity, ties inside scoreEpsilon broken by ascending
// id. Delete is idempotent. Count and CountByStatus are read-only scans for
// the stats surface.
type Store interface {
	Upsert(ctx context.Context, e Entry) error
	Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]SearchResult, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Close() error
}
