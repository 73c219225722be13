package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

func newExtractionForTest(engine *ocrEngineFake, renderer *rendererFake, codec *codecFake, workers int) (*TextExtractionUseCase, *observerFake) {
	observer := &observerFake{}
	rasterizer := NewPageRasterizer(renderer, codec, RasterizerOptions{})
	runner := NewStrategyRunner(engine, nil, observer)
	return NewTextExtractionUseCase(rasterizer, runner, codec, observer, TextExtractionOptions{PageWorkers: workers}), observer
}

func TestRasterizeCapsPagesAndNormalizes(t *testing.T) {
	renderer := &rendererFake{totalPages: 7}
	codec := &codecFake{}
	rasterizer := NewPageRasterizer(renderer, codec, RasterizerOptions{})

	pages, err := rasterizer.Rasterize(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if renderer.lastOpts.DPI != 300 || renderer.lastOpts.FirstPage != 1 || renderer.lastOpts.LastPage != 5 {
		t.Fatalf("unexpected render options: %+v", renderer.lastOpts)
	}
	if len(pages) != 5 {
		t.Fatalf("expected 5 pages, got %d", len(pages))
	}
	for i, page := range pages {
		if page.Index != i || page.DPI != 300 {
			t.Fatalf("unexpected page %d: %+v", i, page)
		}
	}
	if codec.normalized != 5 {
		t.Fatalf("expected 5 normalizations, got %d", codec.normalized)
	}
}

func TestRasterizeTruncatesRendererIgnoringCap(t *testing.T) {
	renderer := &rendererFake{totalPages: 9, ignoreCap: true}
	pages, err := NewPageRasterizer(renderer, &codecFake{}, RasterizerOptions{MaxPages: 3}).Rasterize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
}

func TestRasterizeFailures(t *testing.T) {
	cases := []struct {
		name     string
		renderer *rendererFake
	}{
		{name: "renderer error", renderer: &rendererFake{err: errors.New("syntax error in pdf")}},
		{name: "zero pages", renderer: &rendererFake{totalPages: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPageRasterizer(tc.renderer, &codecFake{}, RasterizerOptions{}).Rasterize(context.Background(), nil)
			if !domain.IsKind(err, domain.ErrRasterization) {
				t.Fatalf("expected ErrRasterization, got %v", err)
			}
		})
	}
}

func TestExtractImageScenarioClassifiesInvoice(t *testing.T) {
	engine := newOCREngineFake().on(0, 3, "Invoice Number: INV-2024-001, Total: $100", nil)
	codec := &codecFake{}
	uc, _ := newExtractionForTest(engine, &rendererFake{}, codec, 0)

	outcome, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "inv.png", Kind: domain.MediaKindImage, Content: []byte("png")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if strings.Contains(outcome.Text, "--- Page") {
		t.Fatalf("image input must not carry page markers: %q", outcome.Text)
	}
	if codec.normalized != 1 {
		t.Fatalf("expected image to be normalized once, got %d", codec.normalized)
	}

	result := Classify(outcome.Text, invoiceContractConfig(t))
	if result.DocumentType != "Invoice" || result.KeywordCounts()["Invoice"] != 2 || result.Confidence != 1.0 {
		t.Fatalf("unexpected classification: %+v", result)
	}
}

func TestExtractUnreadableImageFailsWithInsufficientText(t *testing.T) {
	engine := newOCREngineFake()
	uc, observer := newExtractionForTest(engine, &rendererFake{}, &codecFake{}, 0)

	_, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "black.png", Kind: domain.MediaKindImage, Content: []byte("png")})
	if !domain.IsKind(err, domain.ErrInsufficientText) {
		t.Fatalf("expected ErrInsufficientText, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrOCR) {
		t.Fatalf("expected wrapped ErrOCR, got %v", err)
	}
	if engine.callCount() != 4 {
		t.Fatalf("expected every strategy to be tried, got %d calls", engine.callCount())
	}
	if len(observer.failures) != 1 || observer.failures[0] != "insufficient_text" {
		t.Fatalf("unexpected failure stages: %+v", observer.failures)
	}
}

func TestExtractSevenPagePDFOnlyProcessesFirstFive(t *testing.T) {
	engine := newOCREngineFake()
	for page := 0; page < 7; page++ {
		engine.on(page, 3, fmt.Sprintf("content of page %d", page+1), nil)
	}
	renderer := &rendererFake{totalPages: 7}
	uc, _ := newExtractionForTest(engine, renderer, &codecFake{}, 0)

	outcome, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "long.pdf", Kind: domain.MediaKindPDF, Content: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	for page := 1; page <= 5; page++ {
		if !strings.Contains(outcome.Text, fmt.Sprintf("--- Page %d ---", page)) {
			t.Fatalf("missing marker for page %d: %q", page, outcome.Text)
		}
	}
	for _, absent := range []string{"content of page 6", "content of page 7", "--- Page 6 ---"} {
		if strings.Contains(outcome.Text, absent) {
			t.Fatalf("unexpected %q in output", absent)
		}
	}
	if engine.pageCalls[5] != 0 || engine.pageCalls[6] != 0 {
		t.Fatalf("pages beyond the cap must never be OCR'd: %+v", engine.pageCalls)
	}
	if outcome.PagesProcessed != 5 {
		t.Fatalf("expected 5 processed pages, got %d", outcome.PagesProcessed)
	}
}

func TestExtractPDFSkipsEmptyPagesWithoutMarkers(t *testing.T) {
	engine := newOCREngineFake().
		on(0, 3, "first page text", nil).
		on(2, 6, "third page text", nil)
	uc, observer := newExtractionForTest(engine, &rendererFake{totalPages: 3}, &codecFake{}, 0)

	outcome, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "doc.pdf", Kind: domain.MediaKindPDF, Content: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "--- Page 1 ---\nfirst page text\n--- Page 3 ---\nthird page text"
	if outcome.Text != want {
		t.Fatalf("unexpected text:\n%q\nwant:\n%q", outcome.Text, want)
	}
	if outcome.PagesWithText != 2 {
		t.Fatalf("expected 2 pages with text, got %d", outcome.PagesWithText)
	}
	if observer.pages[1] {
		t.Fatalf("page 2 must be observed as empty")
	}
}

func TestExtractPDFParallelKeepsPageOrder(t *testing.T) {
	engine := newOCREngineFake()
	for page := 0; page < 5; page++ {
		engine.on(page, 3, fmt.Sprintf("text %d", page+1), nil)
	}
	uc, _ := newExtractionForTest(engine, &rendererFake{totalPages: 5}, &codecFake{}, 3)

	outcome, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "doc.pdf", Kind: domain.MediaKindPDF, Content: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	last := -1
	for page := 1; page <= 5; page++ {
		idx := strings.Index(outcome.Text, fmt.Sprintf("--- Page %d ---\ntext %d", page, page))
		if idx < 0 || idx < last {
			t.Fatalf("page %d out of order in %q", page, outcome.Text)
		}
		last = idx
	}
}

func TestExtractRasterizationFailureIsWrapped(t *testing.T) {
	uc, _ := newExtractionForTest(newOCREngineFake(), &rendererFake{err: errors.New("corrupt xref")}, &codecFake{}, 0)

	_, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "bad.pdf", Kind: domain.MediaKindPDF})
	if !domain.IsKind(err, domain.ErrRasterization) || !domain.IsKind(err, domain.ErrOCR) {
		t.Fatalf("expected wrapped rasterization error, got %v", err)
	}
	if !strings.Contains(err.Error(), "corrupt xref") {
		t.Fatalf("expected original cause in message, got %v", err)
	}
	if domain.IsKind(err, domain.ErrInsufficientText) {
		t.Fatalf("rasterization must stay distinct from insufficient text")
	}
}

func TestExtractUnsupportedKind(t *testing.T) {
	uc, _ := newExtractionForTest(newOCREngineFake(), &rendererFake{}, &codecFake{}, 0)
	_, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "a.docx", Kind: "docx"})
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractImageDecodeFailure(t *testing.T) {
	uc, _ := newExtractionForTest(newOCREngineFake(), &rendererFake{}, &codecFake{decodeErr: errUndecodable}, 0)
	_, err := uc.Extract(context.Background(), domain.RawDocument{Filename: "a.png", Kind: domain.MediaKindImage, Content: []byte("x")})
	if !domain.IsKind(err, domain.ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
}

func TestExtractCanceledContextReturnsNoText(t *testing.T) {
	engine := newOCREngineFake().on(0, 3, "some page text", nil)
	uc, _ := newExtractionForTest(engine, &rendererFake{totalPages: 2}, &codecFake{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := uc.Extract(ctx, domain.RawDocument{Filename: "doc.pdf", Kind: domain.MediaKindPDF, Content: []byte("%PDF")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if outcome.Text != "" {
		t.Fatalf("partial text must not be returned, got %q", outcome.Text)
	}
}
