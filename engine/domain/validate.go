package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Loose email shape check: local@host.tld. Records come from a CRM, not user
// signups, so this only rejects values that cannot possibly be addresses.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateRecord checks a QuotationRecord before serialization. A record that
// fails here is rejected per-record; it never reaches the embedder.
func ValidateRecord(rec QuotationRecord) error {
	if rec.ID <= 0 {
		return NewValidationError("id", fmt.Sprintf("%d", rec.ID), ErrMissingID)
	}

	if rec.QuotationStatus != "" && !ValidStatuses[strings.ToLower(rec.QuotationStatus)] {
		return NewValidationError("quotationstatus", rec.QuotationStatus, ErrUnknownStatus)
	}

	if rec.QuotationTotalAmount < 0 {
		return NewValidationError("quotationtotalamount", fmt.Sprintf("%.2f", rec.QuotationTotalAmount), ErrNegativeAmount)
	}
	if rec.ItemSellingPrice < 0 {
		return NewValidationError("itemsellingprice", fmt.Sprintf("%.2f", rec.ItemSellingPrice), ErrNegativeAmount)
	}
	if rec.ItemListingPrice < 0 {
		return NewValidationError("itemlistingprice", fmt.Sprintf("%.2f", rec.ItemListingPrice), ErrNegativeAmount)
	}
	if rec.ItemQuantity < 0 {
		return NewValidationError("itemquantity", fmt.Sprintf("%d", rec.ItemQuantity), ErrNegativeAmount)
	}

	if rec.CustomerEmail != "" && !emailRegex.MatchString(rec.CustomerEmail) {
		return NewValidationError("customeremail", rec.CustomerEmail, ErrBadEmail)
	}

	return nil
}
