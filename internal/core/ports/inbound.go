package ports

import (
	"context"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// DocumentProcessor is the inbound contract for the full upload flow:
// OCR, classification and structured extraction.
type DocumentProcessor interface {
	Process(ctx context.Context, doc domain.RawDocument) (*domain.ProcessResult, error)
}

// TextExtractor is the inbound contract of the OCR pipeline.
type TextExtractor interface {
	Extract(ctx context.Context, doc domain.RawDocument) (domain.ExtractionOutcome, error)
}

// TextClassifier classifies already extracted text with the active config.
type TextClassifier interface {
	ClassifyText(text string) domain.ClassificationResult
}
