package usecase

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

type observerFake struct {
	mu              sync.Mutex
	attempts        []domain.OcrAttempt
	pages           map[int]bool
	classifications []string
	extractions     []domain.ExtractionStatus
	failures        []string
}

func (f *observerFake) ObserveOCRAttempt(attempt domain.OcrAttempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
}

func (f *observerFake) ObservePage(index int, hasText bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pages == nil {
		f.pages = make(map[int]bool)
	}
	f.pages[index] = hasText
}

func (f *observerFake) ObserveClassification(result domain.ClassificationResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifications = append(f.classifications, result.DocumentType)
}

func (f *observerFake) ObserveExtraction(_ string, status domain.ExtractionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractions = append(f.extractions, status)
}

func (f *observerFake) ObserveFailure(stage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, stage)
}

type ocrResponse struct {
	text string
	err  error
}

// ocrEngineFake answers by (page index, page segmentation mode). Pages without
// an entry produce empty text for every configuration.
type ocrEngineFake struct {
	mu        sync.Mutex
	responses map[int]map[int]ocrResponse
	calls     []domain.OCRParams
	pageCalls map[int]int
}

func newOCREngineFake() *ocrEngineFake {
	return &ocrEngineFake{
		responses: make(map[int]map[int]ocrResponse),
		pageCalls: make(map[int]int),
	}
}

func (f *ocrEngineFake) on(page, psm int, text string, err error) *ocrEngineFake {
	if f.responses[page] == nil {
		f.responses[page] = make(map[int]ocrResponse)
	}
	f.responses[page][psm] = ocrResponse{text: text, err: err}
	return f
}

func (f *ocrEngineFake) Recognize(_ context.Context, page domain.PageImage, params domain.OCRParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	f.pageCalls[page.Index]++
	resp := f.responses[page.Index][params.PageSegMode]
	return resp.text, resp.err
}

func (f *ocrEngineFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type rendererFake struct {
	totalPages int
	err        error
	ignoreCap  bool
	lastOpts   ports.RenderOptions
	calls      int
}

func (f *rendererFake) Render(_ context.Context, _ []byte, opts ports.RenderOptions) ([]image.Image, error) {
	f.calls++
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	last := f.totalPages
	if !f.ignoreCap && opts.LastPage > 0 && opts.LastPage < last {
		last = opts.LastPage
	}
	pages := make([]image.Image, 0, last)
	for i := 0; i < last; i++ {
		pages = append(pages, image.NewGray(image.Rect(0, 0, 4, 4)))
	}
	return pages, nil
}

// codecFake decodes any non-empty payload into a small paletted image and
// normalizes it to RGBA, counting both calls.
type codecFake struct {
	decodeErr  error
	normalized int
}

var errUndecodable = errors.New("image: unknown format")

func (f *codecFake) Decode(data []byte) (image.Image, string, error) {
	if f.decodeErr != nil {
		return nil, "", f.decodeErr
	}
	if len(data) == 0 {
		return nil, "", errUndecodable
	}
	palette := color.Palette{color.Black, color.White}
	return image.NewPaletted(image.Rect(0, 0, 8, 8), palette), "png", nil
}

func (f *codecFake) Normalize(img image.Image) image.Image {
	f.normalized++
	out := image.NewRGBA(img.Bounds())
	return out
}
