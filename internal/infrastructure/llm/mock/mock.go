// Package mock returns canned per-type field sets. It keeps the upload flow
// usable without an LLM backend.
package mock

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const previewRunes = 200

var canned = map[string]map[string]any{
	"Invoice": {
		"invoice_number": "INV-2024-001",
		"invoice_date":   "2024-01-15",
		"due_date":       "2024-02-15",
		"total_amount":   "$1,350.00",
		"subtotal":       "$1,250.00",
		"tax_amount":     "$100.00",
		"vendor_name":    "ABC Company",
		"customer_name":  "John Smith",
	},
	"Bank Statement": {
		"account_number":      "****1234",
		"account_holder_name": "John Smith",
		"statement_period":    "January 2024",
		"opening_balance":     "$2,500.00",
		"closing_balance":     "$3,200.00",
		"bank_name":           "Sample Bank",
	},
	"Contract": {
		"contract_title":   "Service Agreement",
		"parties_involved": []string{"ABC Company", "John Smith"},
		"effective_date":   "2024-01-15",
		"contract_value":   "$5,000.00",
		"key_terms":        "Monthly service agreement",
	},
}

var unknown = map[string]any{
	"document_title":  "Unknown Document",
	"key_information": "Unable to classify document type",
}

type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (e *Extractor) Name() string { return "mock" }

func (e *Extractor) ExtractFields(_ context.Context, documentType, text string) (map[string]any, error) {
	source, ok := canned[documentType]
	if !ok {
		source = unknown
	}
	out := make(map[string]any, len(source)+1)
	for k, v := range source {
		out[k] = v
	}

	if _, isInvoice := out["invoice_number"]; isInvoice {
		if number := findInvoiceNumber(text); number != "" {
			out["invoice_number"] = number
		}
	}
	out["ocr_text_preview"] = preview(text)

	slog.Info("mock_extraction_completed", "document_type", documentType)
	return out, nil
}

// findInvoiceNumber returns the first whitespace separated token containing
// "INV-" on a line that mentions an invoice number.
func findInvoiceNumber(text string) string {
	if !strings.Contains(strings.ToLower(text), "invoice") {
		return ""
	}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "invoice number") && !strings.Contains(lower, "inv-") {
			continue
		}
		for _, part := range strings.Fields(line) {
			if strings.Contains(strings.ToUpper(part), "INV-") {
				return part
			}
		}
	}
	return ""
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "..."
}
