package semantic

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the embedded, durable Store backend and the system of
// record for the searchable index. Vectors are stored as little-endian
// float32 BLOBs; similarity is scored in-process over the (filtered)
// candidate set. SQLite's single-writer model plus the single-statement
// upsert gives per-id mutation atomicity without any locking of our own,
// and readers never block readers.
type SQLiteStore struct {
	db  *sql.DB
	dim int
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS quotation_vectors (
	id             INTEGER PRIMARY KEY,
	embedding      BLOB NOT NULL,
	doc            TEXT NOT NULL,
	format         INTEGER NOT NULL,
	customer_name  TEXT NOT NULL DEFAULT '',
	customer_email TEXT NOT NULL DEFAULT '',
	quotation_code TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	total_amount   REAL NOT NULL DEFAULT 0,
	item_name      TEXT NOT NULL DEFAULT '',
	item_brand     TEXT NOT NULL DEFAULT '',
	quantity       INTEGER NOT NULL DEFAULT 0,
	selling_price  REAL NOT NULL DEFAULT 0,
	seller_name    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_vectors_status ON quotation_vectors(status);
`

// NewSQLite opens (or creates) the index database at path and ensures the
// schema. The configured dimension is persisted on first open; reopening
// with a different dimension fails with ErrDimensionMismatch, since that
// means the embedder changed under a live index.
func NewSQLite(path string, dim int) (*SQLiteStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("semantic: invalid dimension %d", dim)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("semantic: open sqlite %s: %w", path, err)
	}
	// The modernc driver is in-process; a single connection avoids
	// SQLITE_BUSY between the writer and concurrent readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("semantic: ensure schema: %w", err)
	}

	s := &SQLiteStore{db: db, dim: dim}
	if err := s.checkDimension(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) checkDimension() error {
	var stored string
	err := s.db.QueryRow(`SELECT value FROM index_meta WHERE key = 'dimension'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(`INSERT INTO index_meta(key, value) VALUES('dimension', ?)`,
			strconv.Itoa(s.dim))
		if err != nil {
			return fmt.Errorf("semantic: record dimension: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("semantic: read dimension: %w", err)
	}
	if stored != strconv.Itoa(s.dim) {
		return fmt.Errorf("%w: index built with dimension %s, configured %d",
			ErrDimensionMismatch, stored, s.dim)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Upsert inserts or atomically replaces the entry for e.ID.
func (s *SQLiteStore) Upsert(ctx context.Context, e Entry) error {
	if len(e.Vector) != s.dim {
		return fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(e.Vector), s.dim)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotation_vectors
			(id, embedding, doc, format, customer_name, customer_email,
			 quotation_code, status, total_amount, item_name, item_brand,
			 quantity, selling_price, seller_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embedding      = excluded.embedding,
			doc            = excluded.doc,
			format         = excluded.format,
			customer_name  = excluded.customer_name,
			customer_email = excluded.customer_email,
			quotation_code = excluded.quotation_code,
			status         = excluded.status,
			total_amount   = excluded.total_amount,
			item_name      = excluded.item_name,
			item_brand     = excluded.item_brand,
			quantity       = excluded.quantity,
			selling_price  = excluded.selling_price,
			seller_name    = excluded.seller_name`,
		e.ID, encodeVector(e.Vector), e.Text, e.Format,
		e.Meta.CustomerName, e.Meta.CustomerEmail, e.Meta.QuotationCode,
		e.Meta.Status, e.Meta.TotalAmount, e.Meta.ItemName, e.Meta.ItemBrand,
		e.Meta.Quantity, e.Meta.SellingPrice, e.Meta.SellerName)
	if err != nil {
		return fmt.Errorf("semantic: upsert id %d: %w", e.ID, err)
	}
	return nil
}

// Search scans the (SQL-filtered) candidate set and ranks by cosine
// similarity. The filter narrows candidates before the top-K cutoff.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]SearchResult, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query vector has %d dims, index %d", ErrDimensionMismatch, len(vector), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	query := `SELECT id, embedding, customer_name, customer_email, quotation_code,
		status, total_amount, item_name, item_brand, quantity, selling_price,
		seller_name FROM quotation_vectors`
	where, args := filterClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			blob []byte
		)
		if err := rows.Scan(&r.ID, &blob, &r.Meta.CustomerName, &r.Meta.CustomerEmail,
			&r.Meta.QuotationCode, &r.Meta.Status, &r.Meta.TotalAmount,
			&r.Meta.ItemName, &r.Meta.ItemBrand, &r.Meta.Quantity,
			&r.Meta.SellingPrice, &r.Meta.SellerName); err != nil {
			return nil, fmt.Errorf("semantic: scan row: %w", err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("semantic: id %d: %w", r.ID, err)
		}
		r.Score = cosineSimilarity(vector, stored)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("semantic: search rows: %w", err)
	}

	return rankResults(results, k), nil
}

// Delete removes the entry for id. Deleting an absent id is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quotation_vectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("semantic: delete id %d: %w", id, err)
	}
	return nil
}

// Count returns the number of live entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotation_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return n, nil
}

// CountByStatus returns live entry counts grouped by status. Entries without
// a status are grouped under "unknown".
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM quotation_vectors GROUP BY status`)
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

// filterClause renders a Filter into a WHERE fragment with placeholders.
func filterClause(f *Filter) (string, []any) {
	if f.IsZero() {
		return "", nil
	}
	var (
		conds []string
		args  []any
	)
	add := func(col, val string) {
		if val != "" {
			conds = append(conds, col+" = ?")
			args = append(args, val)
		}
	}
	add("status", f.Status)
	add("customer_name", f.CustomerName)
	add("quotation_code", f.QuotationCode)
	add("seller_name", f.SellerName)
	add("item_brand", f.ItemBrand)
	return strings.Join(conds, " AND "), args
}

// encodeVector packs a vector as little-endian IEEE 754 float32 values.
func encodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// decodeVector unpacks a BLOB produced by encodeVector.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

var _ Store = (*SQLiteStore)(nil)
