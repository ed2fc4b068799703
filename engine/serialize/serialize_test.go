package serialize

import (
	"strings"
	"testing"

	"github.com/indispare/quotation-rag/engine/domain"
)

func TestText_FullRecord(t *testing.T) {
	rec := domain.QuotationRecord{
		ID:                   1,
		CustomerName:         "John Industries",
		CustomerEmail:        "john@example.com",
		QuotationCode:        "QT-1001",
		QuotationStatus:      "pending",
		QuotationTotalAmount: 1500,
		ItemName:             "Bearing 6205",
		ItemBrand:            "SKF",
		ItemQuantity:         5,
		ItemSellingPrice:     300,
		SellerName:           "indispare",
	}

	got := Text(rec)
	want := "Customer: John Industries | Email: john@example.com | " +
		"Quotation Code: QT-1001 | Status: pending | Total Amount: 1500.00 | " +
		"Item: Bearing 6205 | Brand: SKF | Quantity: 5 | Selling Price: 300.00 | " +
		"Seller: indispare"
	if got != want {
		t.Errorf("canonical text mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestText_OmitsAbsentFields(t *testing.T) {
	got := Text(domain.QuotationRecord{ID: 7, ItemName: "Gearbox"})
	if got != "Item: Gearbox" {
		t.Errorf("expected only the item field, got %q", got)
	}
	if strings.Contains(got, "Customer") || strings.Contains(got, ": |") {
		t.Errorf("absent fields must be omitted, not rendered empty: %q", got)
	}
}

func TestText_FixedDecimalPrecision(t *testing.T) {
	// 300 and 300.0 are the same record as far as the embedding is concerned.
	a := Text(domain.QuotationRecord{ID: 1, ItemSellingPrice: 300})
	b := Text(domain.QuotationRecord{ID: 1, ItemSellingPrice: 300.0})
	if a != b {
		t.Errorf("equivalent numeric values must serialize identically: %q vs %q", a, b)
	}
	if !strings.Contains(a, "Selling Price: 300.00") {
		t.Errorf("price must render with two decimals, got %q", a)
	}
}

func TestText_Deterministic(t *testing.T) {
	rec := domain.QuotationRecord{ID: 3, CustomerName: "Acme", ItemName: "Shaft", ItemSellingPrice: 12.5}
	if Text(rec) != Text(rec) {
		t.Fatal("serialization must be deterministic")
	}
}

func TestSnapshot_LowercasesStatus(t *testing.T) {
	meta := Snapshot(domain.QuotationRecord{ID: 1, QuotationStatus: "Pending"})
	if meta.Status != "pending" {
		t.Errorf("status should be lower-cased, got %q", meta.Status)
	}
}

func TestFormatVersion(t *testing.T) {
	// Bumping the format invalidates every stored vector; make the change
	// deliberate by pinning the current version.
	if FormatVersion != 1 {
		t.Errorf("unexpected format version %d", FormatVersion)
	}
}
