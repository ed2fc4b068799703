// Package serialize renders a QuotationRecord into its canonical text form,
// the single deterministic string that gets embedded. The field order and
// separators below are a persisted contract: vectors produced under one
// format are only comparable with vectors produced under the same format, so
// any change here must bump FormatVersion and trigger a full re-index.
package serialize

import (
	"fmt"
	"strings"

	"github.com/indispare/quotation-rag/engine/domain"
)

// FormatVersion identifies the canonical text format. Stored with every
// vector store entry so a format change is detectable as a re-index trigger.
const FormatVersion = 1

const (
	fieldSep = " | "
	labelSep = ": "
)

// Text renders the canonical text of a record. Deterministic and total:
// absent fields are omitted entirely rather than rendered as empty
// placeholders, and money fields use fixed two-decimal precision so that
// numerically equal records always serialize identically.
func Text(rec domain.QuotationRecord) string {
	parts := make([]string, 0, 13)

	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+labelSep+value)
		}
	}
	addMoney := func(label string, amount float64) {
		if amount != 0 {
			parts = append(parts, label+labelSep+fmt.Sprintf("%.2f", amount))
		}
	}

	add("Customer", rec.CustomerName)
	add("Email", rec.CustomerEmail)
	add("Phone", rec.CustomerPhone)
	add("Quotation Code", rec.QuotationCode)
	add("Status", rec.QuotationStatus)
	addMoney("Total Amount", rec.QuotationTotalAmount)
	add("Item", rec.ItemName)
	add("Brand", rec.ItemBrand)
	add("Specifications", rec.ItemSpecifications)
	if rec.ItemQuantity != 0 {
		add("Quantity", fmt.Sprintf("%d", rec.ItemQuantity))
	}
	addMoney("Selling Price", rec.ItemSellingPrice)
	addMoney("Listing Price", rec.ItemListingPrice)
	add("Seller", rec.SellerName)

	return strings.Join(parts, fieldSep)
}

// Snapshot extracts the Metadata subset stored alongside the vector. Status
// is lower-cased so store filters and the stats scan see one spelling.
func Snapshot(rec domain.QuotationRecord) domain.Metadata {
	return domain.Metadata{
		CustomerName:  rec.CustomerName,
		CustomerEmail: rec.CustomerEmail,
		QuotationCode: rec.QuotationCode,
		Status:        strings.ToLower(rec.QuotationStatus),
		TotalAmount:   rec.QuotationTotalAmount,
		ItemName:      rec.ItemName,
		ItemBrand:     rec.ItemBrand,
		Quantity:      rec.ItemQuantity,
		SellingPrice:  rec.ItemSellingPrice,
		SellerName:    rec.SellerName,
	}
}
