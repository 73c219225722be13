package domain

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownDocumentType is reported when no configured keyword matched.
const UnknownDocumentType = "Unknown"

// TypeKeywords is one entry of the classification table.
type TypeKeywords struct {
	Type     string   `json:"type" yaml:"type"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// ClassificationConfig is an ordered type -> keywords table. Order matters:
// ties are broken by the first type in the table.
type ClassificationConfig struct {
	entries []TypeKeywords
}

func NewClassificationConfig(entries ...TypeKeywords) (ClassificationConfig, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]TypeKeywords, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Type)
		if name == "" {
			return ClassificationConfig{}, WrapError(ErrInvalidInput, "classification config", errors.New("empty document type name"))
		}
		if _, ok := seen[name]; ok {
			return ClassificationConfig{}, WrapError(ErrInvalidInput, "classification config", fmt.Errorf("duplicate document type %q", name))
		}
		seen[name] = struct{}{}
		keywords := make([]string, len(entry.Keywords))
		copy(keywords, entry.Keywords)
		out = append(out, TypeKeywords{Type: name, Keywords: keywords})
	}
	return ClassificationConfig{entries: out}, nil
}

// MustClassificationConfig panics on invalid input; for literals only.
func MustClassificationConfig(entries ...TypeKeywords) ClassificationConfig {
	cfg, err := NewClassificationConfig(entries...)
	if err != nil {
		panic(err)
	}
	return cfg
}

func DefaultClassificationConfig() ClassificationConfig {
	return MustClassificationConfig(
		TypeKeywords{Type: "Invoice", Keywords: []string{"Invoice Number", "Total", "Date", "Due", "Bill", "Amount"}},
		TypeKeywords{Type: "Bank Statement", Keywords: []string{"Account Number", "Transaction", "Balance", "Statement", "Bank", "Deposit"}},
		TypeKeywords{Type: "Contract", Keywords: []string{"Parties", "Agreement", "Effective Date", "Terms", "Contract", "Party"}},
	)
}

// Entries returns a copy of the table in configuration order.
func (c ClassificationConfig) Entries() []TypeKeywords {
	out := make([]TypeKeywords, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c ClassificationConfig) Len() int {
	return len(c.entries)
}

func (c ClassificationConfig) Keywords(docType string) ([]string, bool) {
	for _, entry := range c.entries {
		if entry.Type == docType {
			return entry.Keywords, true
		}
	}
	return nil, false
}

// KeywordScore is the per-type keyword tally.
type KeywordScore struct {
	Type            string   `json:"-"`
	Count           int      `json:"count"`
	MatchedKeywords []string `json:"matched_keywords"`
	TotalPossible   int      `json:"total_possible"`
}

// ClassificationResult carries the selected type and the full breakdown in
// configuration order. Confidence is a keyword-density heuristic in [0, 1],
// not a probability.
type ClassificationResult struct {
	DocumentType string
	Confidence   float64
	Scores       []KeywordScore
}

// KeywordCounts is the compact type -> total count view.
func (r ClassificationResult) KeywordCounts() map[string]int {
	out := make(map[string]int, len(r.Scores))
	for _, score := range r.Scores {
		out[score.Type] = score.Count
	}
	return out
}

func (r ClassificationResult) Detailed() map[string]KeywordScore {
	out := make(map[string]KeywordScore, len(r.Scores))
	for _, score := range r.Scores {
		out[score.Type] = score
	}
	return out
}
