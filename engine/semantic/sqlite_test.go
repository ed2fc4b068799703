package semantic

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, dim int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "index.db"), dim)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id int64, vec []float32, status string) Entry {
	return Entry{
		ID:     id,
		Vector: vec,
		Meta:   Metadata{Status: status, ItemName: "Bearing 6205", CustomerName: "John Industries"},
		Text:   "Item: Bearing 6205",
		Format: 1,
	}
}

func TestSQLite_UpsertAndSearch(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()

	// Known geometry: a aligns with the probe, b is orthogonal, c is close.
	if err := s.Upsert(ctx, entry(1, []float32{1, 0, 0, 0}, "pending")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, entry(2, []float32{0, 1, 0, 0}, "pending")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, entry(3, []float32{0.9, 0.1, 0, 0}, "pending")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("expected ids [1 3], got [%d %d]", got[0].ID, got[1].ID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("results not in descending score order: %f < %f", got[0].Score, got[1].Score)
	}
	if got[0].Meta.ItemName != "Bearing 6205" {
		t.Errorf("metadata snapshot missing: %+v", got[0].Meta)
	}
}

func TestSQLite_UpsertIdempotent(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()
	e := entry(1, []float32{1, 0, 0, 0}, "pending")

	for i := 0; i < 2; i++ {
		if err := s.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d after identical upserts, want 1", n)
	}
}

func TestSQLite_UpsertReplaces(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()

	if err := s.Upsert(ctx, entry(1, []float32{1, 0, 0, 0}, "pending")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	updated := entry(1, []float32{0, 0, 1, 0}, "closed")
	updated.Meta.ItemName = "Bearing 6305"
	if err := s.Upsert(ctx, updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 1 {
		t.Fatalf("count = %d after replacing upsert, want 1", n)
	}

	got, err := s.Search(ctx, []float32{0, 0, 1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected results: %+v", got)
	}
	if got[0].Meta.ItemName != "Bearing 6305" || got[0].Meta.Status != "closed" {
		t.Errorf("search reflects stale data: %+v", got[0].Meta)
	}
	// The old vector must be gone: the probe aligned with it scores low now.
	old, _ := s.Search(ctx, []float32{1, 0, 0, 0}, 1, nil)
	if old[0].Score > 0.5 {
		t.Errorf("old vector still live, score %f", old[0].Score)
	}
}

func TestSQLite_TieBreakAscendingID(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()

	// Insert out of id order; identical vectors score identically.
	same := []float32{0, 1, 0, 0}
	for _, id := range []int64{30, 10, 20} {
		if err := s.Upsert(ctx, entry(id, same, "pending")); err != nil {
			t.Fatalf("upsert %d: %v", id, err)
		}
	}

	got, err := s.Search(ctx, same, 3, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []int64{10, 20, 30}
	for i, r := range got {
		if r.ID != want[i] {
			t.Fatalf("tie-break order wrong: got %v", ids(got))
		}
	}
}

func TestSQLite_FilterAppliedBeforeCutoff(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()

	// The pending record is far more similar to the probe, but a status
	// filter must exclude it entirely, not just rank it lower.
	if err := s.Upsert(ctx, entry(1, []float32{1, 0, 0, 0}, "pending")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, entry(2, []float32{0, 1, 0, 0}, "closed")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0, 0}, 1, &Filter{Status: "closed"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("filter must only admit closed records, got %v", ids(got))
	}
}

func TestSQLite_DeleteIdempotent(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()

	if err := s.Upsert(ctx, entry(1, []float32{1, 0, 0, 0}, "pending")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Deleting again, and deleting something that never existed, are no-ops.
	if err := s.Delete(ctx, 1); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if err := s.Delete(ctx, 999); err != nil {
		t.Errorf("delete absent id: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 0 {
		t.Errorf("count = %d after delete, want 0", n)
	}
}

func TestSQLite_DimensionMismatch(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()

	err := s.Upsert(ctx, entry(1, []float32{1, 0, 0}, "pending"))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("upsert: expected ErrDimensionMismatch, got %v", err)
	}
	_, err = s.Search(ctx, []float32{1, 0}, 5, nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("search: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	s, err := NewSQLite(path, 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Upsert(ctx, entry(1, []float32{1, 0, 0, 0}, "pending")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLite(path, 4)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count after reopen = %d, want 1", n)
	}
	got, err := reopened.Search(ctx, []float32{1, 0, 0, 0}, 1, nil)
	if err != nil || len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("search after reopen: %v %v", got, err)
	}
}

func TestSQLite_ReopenWrongDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewSQLite(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := NewSQLite(path, 8); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on reopen, got %v", err)
	}
}

func TestSQLite_CountByStatus(t *testing.T) {
	s := testStore(t, 4)
	ctx := context.Background()

	for i, status := range []string{"pending", "pending", "closed", ""} {
		if err := s.Upsert(ctx, entry(int64(i+1), []float32{1, 0, 0, 0}, status)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if got["pending"] != 2 || got["closed"] != 1 || got["unknown"] != 1 {
		t.Errorf("unexpected distribution: %v", got)
	}
}

func TestSQLite_SearchEmptyStore(t *testing.T) {
	s := testStore(t, 4)
	got, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 5, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func ids(rs []SearchResult) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
