package ports

import (
	"context"
	"image"
	"io"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// OCREngine is the black-box recognition capability. Implementations may fail
// arbitrarily; callers recover per configuration.
type OCREngine interface {
	Recognize(ctx context.Context, page domain.PageImage, params domain.OCRParams) (string, error)
}

// RenderOptions bounds a PDF rendering call. Pages are 1-indexed and inclusive.
type RenderOptions struct {
	DPI       int
	FirstPage int
	LastPage  int
}

// PDFRenderer converts PDF bytes into page images in page order.
type PDFRenderer interface {
	Render(ctx context.Context, pdf []byte, opts RenderOptions) ([]image.Image, error)
}

// ImageCodec decodes uploaded images and normalizes their colour model.
type ImageCodec interface {
	Decode(data []byte) (image.Image, string, error)
	Normalize(img image.Image) image.Image
}

// ClassificationConfigSource returns the current classification table snapshot.
type ClassificationConfigSource interface {
	Snapshot() domain.ClassificationConfig
}

// StructuredExtractor recovers typed fields from OCR text.
type StructuredExtractor interface {
	Name() string
	ExtractFields(ctx context.Context, documentType, text string) (map[string]any, error)
}

// ObjectStorage keeps uploaded files while they are processed.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// JobQueue hands stored documents to remote workers and waits for the result.
type JobQueue interface {
	Submit(ctx context.Context, job domain.ProcessJob) (*domain.ProcessResult, error)
	Serve(ctx context.Context, handler func(context.Context, domain.ProcessJob) (*domain.ProcessResult, error)) error
}

// PipelineObserver receives pipeline telemetry. It must not affect control flow.
type PipelineObserver interface {
	ObserveOCRAttempt(attempt domain.OcrAttempt)
	ObservePage(index int, hasText bool)
	ObserveClassification(result domain.ClassificationResult)
	ObserveExtraction(provider string, status domain.ExtractionStatus)
	ObserveFailure(stage string)
}

// NopObserver discards all telemetry.
type NopObserver struct{}

func (NopObserver) ObserveOCRAttempt(domain.OcrAttempt) {}
func (NopObserver) ObservePage(int, bool) {}
func (NopObserver) ObserveClassification(domain.ClassificationResult) {}
func (NopObserver) ObserveExtraction(string, domain.ExtractionStatus) {}
func (NopObserver) ObserveFailure(string) {}
