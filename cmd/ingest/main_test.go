package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/indispare/quotation-rag/engine/domain"
	"github.com/indispare/quotation-rag/engine/embedding"
	"github.com/indispare/quotation-rag/engine/semantic"
)

func TestPermanent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", domain.NewValidationError("id", "0", domain.ErrMissingID), true},
		{"empty text", fmt.Errorf("ingest: embed record 1: %w", embedding.ErrEmptyText), true},
		{"too long", embedding.ErrTextTooLong, true},
		{"dimension", semantic.ErrDimensionMismatch, true},
		{"unavailable", semantic.ErrUnavailable, false},
		{"other", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := permanent(tc.err); got != tc.want {
				t.Errorf("permanent(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
