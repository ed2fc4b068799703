package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/indispare/quotation-rag/engine/domain"
	"github.com/indispare/quotation-rag/engine/embedding"
	"github.com/indispare/quotation-rag/engine/ingest"
	"github.com/indispare/quotation-rag/engine/rag"
	"github.com/indispare/quotation-rag/engine/semantic"
	"github.com/indispare/quotation-rag/pkg/metrics"
	"github.com/indispare/quotation-rag/pkg/natsutil"
)

type server struct {
	ingest   *ingest.Service
	rag      *rag.Service
	store    semantic.Store
	nc       *nats.Conn
	reg      *metrics.Registry
	validate *validator.Validate
	logger   *slog.Logger

	ingested *metrics.Counter
	rejected *metrics.Counter
	queries  *metrics.Histogram
}

func newServer(ing *ingest.Service, ragSvc *rag.Service, store semantic.Store, nc *nats.Conn, reg *metrics.Registry, logger *slog.Logger) *server {
	return &server{
		ingest:   ing,
		rag:      ragSvc,
		store:    store,
		nc:       nc,
		reg:      reg,
		validate: validator.New(),
		logger:   logger,
		ingested: reg.Counter("ingest_records_total", "Records ingested through the API."),
		rejected: reg.Counter("ingest_rejected_total", "Records rejected by validation or embedding."),
		queries:  reg.Histogram("query_seconds", "Query latency.", nil),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps pipeline errors to HTTP statuses: invalid input 400,
// un-embeddable input 422, backend outage 503, everything else 500.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrEmptyText), errors.Is(err, embedding.ErrTextTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, semantic.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleAddQuotation(w http.ResponseWriter, r *http.Request) {
	var rec domain.QuotationRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.ingest.Ingest(r.Context(), rec); err != nil {
		s.rejected.Inc()
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.ingested.Inc()
	s.announce(r, rec)

	count, _ := s.store.Count(r.Context())
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     rec.ID,
		"status": "indexed",
		"count":  count,
	})
}

// BulkRequest is the JSON body for POST /api/quotations/bulk.
type BulkRequest struct {
	Records []domain.QuotationRecord `json:"records" validate:"required,min=1,max=1000"`
}

// BulkResult reports one record's outcome.
type BulkResult struct {
	ID    int64  `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *server) handleBulkAdd(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcomes := s.ingest.Bulk(r.Context(), req.Records)

	results := make([]BulkResult, len(outcomes))
	indexed := 0
	for i, o := range outcomes {
		results[i] = BulkResult{ID: o.ID, OK: o.OK()}
		if o.OK() {
			indexed++
			s.ingested.Inc()
			s.announce(r, req.Records[i])
		} else {
			results[i].Error = o.Err.Error()
			s.rejected.Inc()
		}
	}

	count, _ := s.store.Count(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"indexed": indexed,
		"failed":  len(outcomes) - indexed,
		"count":   count,
	})
}

// announce publishes an indexed-record event when a NATS connection is
// configured.
func (s *server) announce(r *http.Request, rec domain.QuotationRecord) {
	if s.nc == nil {
		return
	}
	if err := natsutil.Publish(r.Context(), s.nc, ingest.IndexedSubject, rec); err != nil {
		s.logger.Warn("publish indexed event failed", "record_id", rec.ID, "err", err)
	}
}

// QueryRequest is the JSON body for POST /api/query.
type QueryRequest struct {
	Question   string           `json:"question" validate:"required"`
	MaxResults int              `json:"max_results" validate:"gte=0,lte=50"`
	Filter     *semantic.Filter `json:"filter,omitempty"`
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runQuery(w, r, req)
}

func (s *server) handleQueryGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := QueryRequest{Question: q.Get("question")}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if n := q.Get("n"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil || v < 0 || v > rag.MaxTopK {
			writeError(w, http.StatusBadRequest, "n must be between 0 and 50")
			return
		}
		req.MaxResults = v
	}
	if status := q.Get("status"); status != "" {
		req.Filter = &semantic.Filter{Status: status}
	}
	s.runQuery(w, r, req)
}

func (s *server) runQuery(w http.ResponseWriter, r *http.Request, req QueryRequest) {
	start := time.Now()
	res, err := s.rag.Query(r.Context(), req.Question, req.MaxResults, req.Filter)
	s.queries.Since(start)
	if err != nil {
		s.logger.Error("query failed", "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleDeleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	byStatus, err := s.store.CountByStatus(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     count,
		"by_status": byStatus,
	})
}
