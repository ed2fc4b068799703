package ingest

import "github.com/indispare/quotation-rag/engine/domain"

// Prepared is a validated record with its canonical text and metadata
// snapshot, ready for embedding.
type Prepared struct {
	Record domain.QuotationRecord
	Text   string
	Meta   domain.Metadata
}

// Embedded is a prepared record with its vector.
type Embedded struct {
	Prepared
	Vector []float32
}

// Outcome reports one record's ingestion result in a bulk call.
type Outcome struct {
	ID  int64 `json:"id"`
	Err error `json:"-"`
}

// OK reports whether the record was ingested.
func (o Outcome) OK() bool { return o.Err == nil }
