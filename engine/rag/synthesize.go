package rag

import (
	"fmt"
	"strings"
)

// NoMatchesMessage is the fixed answer for an empty candidate set.
const NoMatchesMessage = "No matching quotations found."

// synthesizeAnswer renders the prose answer from ranked matches. Pure
// template composition: the same matches always produce the same string,
// and every fact in the string also exists in the structured matches.
func synthesizeAnswer(matches []Match, limit int) string {
	if len(matches) == 0 {
		return NoMatchesMessage
	}

	var b strings.Builder
	if len(matches) == 1 {
		b.WriteString("Found 1 matching quotation item.")
	} else {
		fmt.Fprintf(&b, "Found %d matching quotation items.", len(matches))
	}

	n := limit
	if n > len(matches) {
		n = len(matches)
	}
	b.WriteString(" Top matches:")

	for i := 0; i < n; i++ {
		m := matches[i]
		fmt.Fprintf(&b, "\n%d. ", i+1)

		var parts []string
		if m.Meta.QuotationCode != "" {
			parts = append(parts, "Quotation "+m.Meta.QuotationCode)
		}
		if m.Meta.ItemName != "" {
			parts = append(parts, m.Meta.ItemName)
		}
		if len(parts) == 0 {
			parts = append(parts, fmt.Sprintf("Record %d", m.ID))
		}
		b.WriteString(strings.Join(parts, ": "))

		if m.Meta.CustomerName != "" {
			b.WriteString(" for " + m.Meta.CustomerName)
		}
		if m.Meta.SellingPrice != 0 {
			fmt.Fprintf(&b, " at ₹%.2f", m.Meta.SellingPrice)
		}
		if m.Meta.Status != "" {
			fmt.Fprintf(&b, " (status: %s)", m.Meta.Status)
		}
	}

	return b.String()
}
