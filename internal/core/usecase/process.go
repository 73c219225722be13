package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

const rawTextPreviewRunes = 500

// ProcessDocumentUseCase runs OCR, classification and structured extraction
// for one uploaded document.
type ProcessDocumentUseCase struct {
	extractor  ports.TextExtractor
	classifier ports.TextClassifier
	structured ports.StructuredExtractor
	observer   ports.PipelineObserver
}

func NewProcessDocumentUseCase(
	extractor ports.TextExtractor,
	classifier ports.TextClassifier,
	structured ports.StructuredExtractor,
	observer ports.PipelineObserver,
) *ProcessDocumentUseCase {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &ProcessDocumentUseCase{
		extractor:  extractor,
		classifier: classifier,
		structured: structured,
		observer:   observer,
	}
}

func (uc *ProcessDocumentUseCase) Process(ctx context.Context, doc domain.RawDocument) (*domain.ProcessResult, error) {
	outcome, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	classification := uc.classifier.ClassifyText(outcome.Text)
	structured, status := uc.extractStructured(ctx, classification.DocumentType, outcome.Text)

	return &domain.ProcessResult{
		DocumentType:    classification.DocumentType,
		Confidence:      classification.Confidence,
		KeywordMatches:  classification.KeywordCounts(),
		DetailedMatches: classification.Detailed(),
		StructuredData:  structured,
		ProcessingInfo: domain.ProcessingInfo{
			FileName:         doc.Filename,
			FileSize:         doc.Size(),
			TextLength:       utf8.RuneCountInString(outcome.Text),
			PagesProcessed:   outcome.PagesProcessed,
			ExtractionStatus: status,
		},
	}, nil
}

// extractStructured never fails the request: extractor errors are reported
// inside the returned data with a raw text preview.
func (uc *ProcessDocumentUseCase) extractStructured(ctx context.Context, documentType, text string) (map[string]any, domain.ExtractionStatus) {
	if uc.structured == nil {
		return map[string]any{"raw_text_preview": previewWithEllipsis(text, rawTextPreviewRunes)}, domain.ExtractionStatusSkipped
	}

	provider := uc.structured.Name()
	data, err := uc.structured.ExtractFields(ctx, documentType, text)
	if err != nil {
		slog.Warn("structured_extraction_degraded", "provider", provider, "document_type", documentType, "error", err)
		uc.observer.ObserveExtraction(provider, domain.ExtractionStatusDegraded)
		return map[string]any{
			"error":            fmt.Sprintf("AI extraction failed: %v", err),
			"raw_text_preview": previewWithEllipsis(text, rawTextPreviewRunes),
		}, domain.ExtractionStatusDegraded
	}
	if data == nil {
		data = map[string]any{}
	}
	uc.observer.ObserveExtraction(provider, domain.ExtractionStatusOK)
	return data, domain.ExtractionStatusOK
}

func previewWithEllipsis(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return preview(text, limit) + "..."
}
