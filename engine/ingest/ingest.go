// Package ingest runs the ingestion pipeline: validate a quotation record,
// render its canonical text, embed it, and upsert the vector into the store.
// Bulk ingestion is a set of independent per-record runs; one record's
// failure never rolls back another's success.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/indispare/quotation-rag/engine/domain"
	"github.com/indispare/quotation-rag/engine/embedding"
	"github.com/indispare/quotation-rag/engine/semantic"
	"github.com/indispare/quotation-rag/engine/serialize"
	"github.com/indispare/quotation-rag/pkg/fn"
)

const (
	// IngestSubject is the NATS subject carrying quotation records from the
	// CRM side.
	IngestSubject = "quotation.ingest"
	// DLQSubject receives records that failed ingestion after retries.
	DLQSubject = "quotation.ingest.dlq"
	// IndexedSubject announces successfully indexed records to downstream
	// consumers.
	IndexedSubject = "quotation.indexed"
	// DefaultWorkers bounds bulk ingestion concurrency.
	DefaultWorkers = 4
)

// Service wires the pipeline stages to an embedder and a vector store.
type Service struct {
	pipeline fn.Stage[domain.QuotationRecord, int64]
	logger   *slog.Logger
	workers  int
}

// New creates an ingestion Service.
func New(embedder embedding.Embedder, store semantic.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	prepare := fn.Then(Validate, Prepare)
	embed := fn.Then(prepare, fn.Traced("ingest.embed", NewEmbed(embedder)))
	full := fn.Then(embed, fn.Traced("ingest.upsert", NewUpsert(store)))
	return &Service{pipeline: full, logger: logger, workers: DefaultWorkers}
}

// --- Pipeline stages ---

// Validate gates records on domain validation.
var Validate fn.Stage[domain.QuotationRecord, domain.QuotationRecord] = func(_ context.Context, rec domain.QuotationRecord) fn.Result[domain.QuotationRecord] {
	if err := domain.ValidateRecord(rec); err != nil {
		return fn.Err[domain.QuotationRecord](err)
	}
	return fn.Ok(rec)
}

// Prepare renders the canonical text and metadata snapshot.
var Prepare fn.Stage[domain.QuotationRecord, Prepared] = fn.MapStage(func(rec domain.QuotationRecord) Prepared {
	return Prepared{
		Record: rec,
		Text:   serialize.Text(rec),
		Meta:   serialize.Snapshot(rec),
	}
})

// NewEmbed creates the embedding stage.
func NewEmbed(embedder embedding.Embedder) fn.Stage[Prepared, Embedded] {
	return func(ctx context.Context, p Prepared) fn.Result[Embedded] {
		vec, err := embedder.Embed(ctx, p.Text)
		if err != nil {
			return fn.Err[Embedded](fmt.Errorf("ingest: embed record %d: %w", p.Record.ID, err))
		}
		return fn.Ok(Embedded{Prepared: p, Vector: vec})
	}
}

// NewUpsert creates the store stage. It returns the record id so the whole
// pipeline resolves to something reportable.
func NewUpsert(store semantic.Store) fn.Stage[Embedded, int64] {
	return func(ctx context.Context, e Embedded) fn.Result[int64] {
		entry := semantic.Entry{
			ID:     e.Record.ID,
			Vector: e.Vector,
			Meta:   e.Meta,
			Text:   e.Text,
			Format: serialize.FormatVersion,
		}
		if err := store.Upsert(ctx, entry); err != nil {
			return fn.Err[int64](fmt.Errorf("ingest: store record %d: %w", e.Record.ID, err))
		}
		return fn.Ok(e.Record.ID)
	}
}

// --- Entry points ---

// Ingest runs one record through the full pipeline.
func (s *Service) Ingest(ctx context.Context, rec domain.QuotationRecord) error {
	_, err := s.pipeline(ctx, rec).Unwrap()
	if err != nil {
		s.logger.Warn("ingest failed", "record_id", rec.ID, "err", err)
		return err
	}
	s.logger.Info("record ingested", "record_id", rec.ID)
	return nil
}

// Bulk ingests records independently with bounded parallelism, reporting
// each record's outcome. Failures do not abort the batch.
func (s *Service) Bulk(ctx context.Context, recs []domain.QuotationRecord) []Outcome {
	results := fn.ParMapResult(recs, s.workers, func(rec domain.QuotationRecord) fn.Result[int64] {
		return s.pipeline(ctx, rec)
	})

	outcomes := make([]Outcome, len(recs))
	for i, r := range results {
		_, err := r.Unwrap()
		outcomes[i] = Outcome{ID: recs[i].ID, Err: err}
		if err != nil {
			s.logger.Warn("bulk ingest: record failed", "record_id", recs[i].ID, "err", err)
		}
	}
	return outcomes
}
