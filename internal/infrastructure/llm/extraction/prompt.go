// Package extraction holds the prompt and response handling shared by the
// LLM-backed structured extractors.
package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxPromptRunes = 8000

var fieldsByType = map[string][]string{
	"Invoice": {
		"invoice_number", "invoice_date", "due_date", "total_amount",
		"subtotal", "tax_amount", "vendor_name", "customer_name",
	},
	"Bank Statement": {
		"account_number", "account_holder_name", "statement_period",
		"opening_balance", "closing_balance", "bank_name",
	},
	"Contract": {
		"contract_title", "parties_involved", "effective_date",
		"contract_value", "key_terms",
	},
}

var fallbackFields = []string{"document_title", "key_information"}

// Fields lists the keys requested for a document type. Types loaded from a
// custom classification config fall back to a generic pair.
func Fields(documentType string) []string {
	if fields, ok := fieldsByType[documentType]; ok {
		return append([]string(nil), fields...)
	}
	return append([]string(nil), fallbackFields...)
}

func BuildPrompt(documentType, text string) string {
	snippet := text
	if runes := []rune(snippet); len(runes) > maxPromptRunes {
		snippet = string(runes[:maxPromptRunes])
	}

	return fmt.Sprintf(`You extract structured fields from OCR text of a scanned document.
Document type: %s
Return a strict JSON object with exactly these keys: %s.
Use null for values that are not present. Copy values verbatim from the text.
No markdown, no extra keys.

Document:
%s`, documentType, strings.Join(Fields(documentType), ", "), snippet)
}

// ParseFields decodes the first JSON object in a model reply, tolerating
// code fences and surrounding prose.
func ParseFields(raw string) (map[string]any, error) {
	body := extractJSONObject(stripCodeFences(strings.TrimSpace(raw)))
	if body == "" {
		return nil, fmt.Errorf("empty model response")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("parse extraction json: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
