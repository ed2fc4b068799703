package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgxStore is a Store backed by Postgres with the pgvector extension.
// Cosine distance ordering happens in SQL (`<=>` with an ivfflat index);
// scores are converted back to cosine similarity so all backends report the
// same convention.
type PgxStore struct {
	pool *pgxpool.Pool
	dim  int
}

// NewPgx connects to Postgres and bootstraps the schema.
func NewPgx(ctx context.Context, connStr string, dim int) (*PgxStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: pgx pool: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", ErrUnavailable, err)
	}

	s := &PgxStore{pool: pool, dim: dim}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgxStore) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS quotation_vectors (
		id             BIGINT PRIMARY KEY,
		embedding      vector(%d) NOT NULL,
		doc            TEXT NOT NULL,
		format         INT NOT NULL,
		customer_name  TEXT NOT NULL DEFAULT '',
		customer_email TEXT NOT NULL DEFAULT '',
		quotation_code TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT '',
		total_amount   DOUBLE PRECISION NOT NULL DEFAULT 0,
		item_name      TEXT NOT NULL DEFAULT '',
		item_brand     TEXT NOT NULL DEFAULT '',
		quantity       BIGINT NOT NULL DEFAULT 0,
		selling_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
		seller_name    TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_quotation_vectors_embedding
		ON quotation_vectors USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	CREATE INDEX IF NOT EXISTS idx_quotation_vectors_status ON quotation_vectors(status);
	`, s.dim)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("semantic: ensure pg schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PgxStore) Close() error {
	s.pool.Close()
	return nil
}

// Upsert inserts or atomically replaces the row for e.ID.
func (s *PgxStore) Upsert(ctx context.Context, e Entry) error {
	if len(e.Vector) != s.dim {
		return fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(e.Vector), s.dim)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO quotation_vectors
			(id, embedding, doc, format, customer_name, customer_email,
			 quotation_code, status, total_amount, item_name, item_brand,
			 quantity, selling_price, seller_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			embedding      = EXCLUDED.embedding,
			doc            = EXCLUDED.doc,
			format         = EXCLUDED.format,
			customer_name  = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			quotation_code = EXCLUDED.quotation_code,
			status         = EXCLUDED.status,
			total_amount   = EXCLUDED.total_amount,
			item_name      = EXCLUDED.item_name,
			item_brand     = EXCLUDED.item_brand,
			quantity       = EXCLUDED.quantity,
			selling_price  = EXCLUDED.selling_price,
			seller_name    = EXCLUDED.seller_name`,
		e.ID, pgvector.NewVector(e.Vector), e.Text, e.Format,
		e.Meta.CustomerName, e.Meta.CustomerEmail, e.Meta.QuotationCode,
		e.Meta.Status, e.Meta.TotalAmount, e.Meta.ItemName, e.Meta.ItemBrand,
		e.Meta.Quantity, e.Meta.SellingPrice, e.Meta.SellerName)
	if err != nil {
		return fmt.Errorf("semantic: upsert id %d: %w", e.ID, err)
	}
	return nil
}

// Search runs filtered cosine-ordered retrieval in SQL and re-ranks locally
// for the ascending-id tie-break.
func (s *PgxStore) Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]SearchResult, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query vector has %d dims, index %d", ErrDimensionMismatch, len(vector), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	query := `SELECT id, 1 - (embedding <=> $1) AS score, customer_name,
		customer_email, quotation_code, status, total_amount, item_name,
		item_brand, quantity, selling_price, seller_name
		FROM quotation_vectors`
	args := []any{pgvector.NewVector(vector)}

	var conds []string
	add := func(col, val string) {
		if val != "" {
			args = append(args, val)
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	if !filter.IsZero() {
		add("status", filter.Status)
		add("customer_name", filter.CustomerName)
		add("quotation_code", filter.QuotationCode)
		add("seller_name", filter.SellerName)
		add("item_brand", filter.ItemBrand)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r     SearchResult
			score float64
		)
		if err := rows.Scan(&r.ID, &score, &r.Meta.CustomerName, &r.Meta.CustomerEmail,
			&r.Meta.QuotationCode, &r.Meta.Status, &r.Meta.TotalAmount,
			&r.Meta.ItemName, &r.Meta.ItemBrand, &r.Meta.Quantity,
			&r.Meta.SellingPrice, &r.Meta.SellerName); err != nil {
			return nil, fmt.Errorf("semantic: scan row: %w", err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("semantic: search rows: %w", err)
	}

	return rankResults(results, k), nil
}

// Delete removes the row for id; absent ids are a no-op.
func (s *PgxStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quotation_vectors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("semantic: delete id %d: %w", id, err)
	}
	return nil
}

// Count returns the number of live rows.
func (s *PgxStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotation_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return n, nil
}

// CountByStatus returns live row counts grouped by status.
func (s *PgxStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM quotation_vectors GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("semantic: count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("semantic: scan status count: %w", err)
		}
		if status == "" {
			status = "unknown"
		}
		out[status] += n
	}
	return out, rows.Err()
}

var _ Store = (*PgxStore)(nil)
