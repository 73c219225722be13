package usecase

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

// Classify scores every configured type by keyword occurrences and picks the
// highest total. Ties go to the type listed first in cfg. When nothing
// matched, the result is Unknown with zero confidence.
//
// Confidence is min(count / max(1, len(winner keywords)), 1): matches per
// configured keyword of the winning type only, even though other types may
// have longer or shorter lists.
func Classify(text string, cfg domain.ClassificationConfig) domain.ClassificationResult {
	if strings.TrimSpace(text) == "" {
		return domain.ClassificationResult{
			DocumentType: domain.UnknownDocumentType,
			Confidence:   0,
			Scores:       []domain.KeywordScore{},
		}
	}

	normalized := normalizeText(text)
	entries := cfg.Entries()
	scores := make([]domain.KeywordScore, 0, len(entries))
	best := -1

	for _, entry := range entries {
		score := domain.KeywordScore{
			Type:            entry.Type,
			MatchedKeywords: []string{},
			TotalPossible:   len(entry.Keywords),
		}
		for _, keyword := range entry.Keywords {
			n := countOverlapping(normalized, normalizeKeyword(keyword))
			score.Count += n
			if n > 0 {
				score.MatchedKeywords = append(score.MatchedKeywords, keyword)
			}
		}
		scores = append(scores, score)
		if best < 0 || score.Count > scores[best].Count {
			best = len(scores) - 1
		}
	}

	result := domain.ClassificationResult{
		DocumentType: domain.UnknownDocumentType,
		Confidence:   0,
		Scores:       scores,
	}
	if best < 0 || scores[best].Count == 0 {
		return result
	}

	winner := scores[best]
	confidence := float64(winner.Count) / float64(max(1, winner.TotalPossible))
	result.DocumentType = winner.Type
	result.Confidence = min(confidence, 1.0)
	return result
}

func normalizeText(text string) string {
	return strings.ToLower(text)
}

func normalizeKeyword(keyword string) string {
	return strings.ToLower(keyword)
}

// countOverlapping counts occurrences of needle in haystack, allowing matches
// to overlap ("aaa" contains "aa" twice). An empty needle never matches.
func countOverlapping(haystack, needle string) int {
	if needle == "" {
		return 0
	}
	count := 0
	for offset := 0; offset < len(haystack); {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			break
		}
		count++
		_, size := utf8.DecodeRuneInString(haystack[offset+idx:])
		offset += idx + size
	}
	return count
}

// KeywordClassifier binds Classify to a live configuration source.
type KeywordClassifier struct {
	source   ports.ClassificationConfigSource
	observer ports.PipelineObserver
}

func NewKeywordClassifier(source ports.ClassificationConfigSource, observer ports.PipelineObserver) *KeywordClassifier {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &KeywordClassifier{source: source, observer: observer}
}

func (c *KeywordClassifier) ClassifyText(text string) domain.ClassificationResult {
	result := Classify(text, c.source.Snapshot())
	c.observer.ObserveClassification(result)
	slog.Info("document_classified",
		"document_type", result.DocumentType,
		"confidence", result.Confidence,
	)
	return result
}
