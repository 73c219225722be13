package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

// minExtractedRunes is the inclusive floor for the assembled document text.
const minExtractedRunes = 3

type TextExtractionOptions struct {
	// PageWorkers bounds concurrent page OCR. Values below 2 run pages
	// sequentially.
	PageWorkers int
}

// TextExtractionUseCase picks the OCR path by media kind and enforces the
// document-level text quality gate.
type TextExtractionUseCase struct {
	rasterizer *PageRasterizer
	runner     *StrategyRunner
	codec      ports.ImageCodec
	observer   ports.PipelineObserver
	opts       TextExtractionOptions
}

func NewTextExtractionUseCase(
	rasterizer *PageRasterizer,
	runner *StrategyRunner,
	codec ports.ImageCodec,
	observer ports.PipelineObserver,
	opts TextExtractionOptions,
) *TextExtractionUseCase {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &TextExtractionUseCase{
		rasterizer: rasterizer,
		runner:     runner,
		codec:      codec,
		observer:   observer,
		opts:       opts,
	}
}

func (uc *TextExtractionUseCase) Extract(ctx context.Context, doc domain.RawDocument) (domain.ExtractionOutcome, error) {
	var (
		outcome domain.ExtractionOutcome
		err     error
	)

	switch doc.Kind {
	case domain.MediaKindPDF:
		slog.Info("processing_pdf", "file", doc.Filename, "size", doc.Size())
		outcome, err = uc.extractPDF(ctx, doc)
	case domain.MediaKindImage:
		slog.Info("processing_image", "file", doc.Filename, "size", doc.Size())
		outcome, err = uc.extractImage(ctx, doc)
	default:
		err = domain.WrapError(domain.ErrUnsupportedFormat, "detect format", fmt.Errorf("unsupported file format: %q (%s)", doc.Kind, doc.Filename))
	}
	if err != nil {
		return domain.ExtractionOutcome{}, uc.fail(doc, err)
	}

	outcome.Text = strings.TrimSpace(outcome.Text)
	if utf8.RuneCountInString(outcome.Text) < minExtractedRunes {
		err := domain.WrapError(domain.ErrInsufficientText, "assemble text", fmt.Errorf("extracted %d characters", utf8.RuneCountInString(outcome.Text)))
		return domain.ExtractionOutcome{}, uc.fail(doc, err)
	}

	slog.Info("text_extracted", "file", doc.Filename, "characters", utf8.RuneCountInString(outcome.Text), "pages", outcome.PagesProcessed)
	return outcome, nil
}

func (uc *TextExtractionUseCase) extractPDF(ctx context.Context, doc domain.RawDocument) (domain.ExtractionOutcome, error) {
	pages, err := uc.rasterizer.Rasterize(ctx, doc.Content)
	if err != nil {
		return domain.ExtractionOutcome{}, err
	}

	texts, err := uc.recognizePages(ctx, pages)
	if err != nil {
		return domain.ExtractionOutcome{}, err
	}

	var builder strings.Builder
	withText := 0
	for i, page := range pages {
		text := texts[i]
		uc.observer.ObservePage(page.Index, text != "")
		if text == "" {
			slog.Warn("page_skipped", "file", doc.Filename, "page", page.Index+1, "reason", "no text extracted")
			continue
		}
		withText++
		fmt.Fprintf(&builder, "\n--- Page %d ---\n%s", page.Index+1, text)
	}

	return domain.ExtractionOutcome{
		Text:           builder.String(),
		PagesProcessed: len(pages),
		PagesWithText:  withText,
	}, nil
}

// recognizePages returns texts indexed like pages, independent of the order
// in which workers finish.
func (uc *TextExtractionUseCase) recognizePages(ctx context.Context, pages []domain.PageImage) ([]string, error) {
	texts := make([]string, len(pages))

	if uc.opts.PageWorkers < 2 || len(pages) < 2 {
		for i, page := range pages {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slog.Info("processing_page", "page", page.Index+1, "total", len(pages))
			texts[i], _ = uc.runner.Run(ctx, page)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return texts, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.opts.PageWorkers)
	for i, page := range pages {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			texts[i], _ = uc.runner.Run(groupCtx, page)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

func (uc *TextExtractionUseCase) extractImage(ctx context.Context, doc domain.RawDocument) (domain.ExtractionOutcome, error) {
	img, format, err := uc.codec.Decode(doc.Content)
	if err != nil {
		return domain.ExtractionOutcome{}, domain.WrapError(domain.ErrImageDecode, "decode image", err)
	}
	bounds := img.Bounds()
	slog.Info("image_loaded", "file", doc.Filename, "format", format, "width", bounds.Dx(), "height", bounds.Dy())

	page := domain.PageImage{Index: 0, Image: uc.codec.Normalize(img)}
	text, _ := uc.runner.Run(ctx, page)
	if err := ctx.Err(); err != nil {
		return domain.ExtractionOutcome{}, err
	}
	uc.observer.ObservePage(0, text != "")

	withText := 0
	if text != "" {
		withText = 1
	}
	return domain.ExtractionOutcome{Text: text, PagesProcessed: 1, PagesWithText: withText}, nil
}

// fail wraps any stage error into the single OCR failure seen by callers.
func (uc *TextExtractionUseCase) fail(doc domain.RawDocument, err error) error {
	stage := domain.Stage(err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		stage = "canceled"
	}
	uc.observer.ObserveFailure(stage)
	slog.Error("ocr_processing_failed", "file", doc.Filename, "stage", stage, "error", err)
	return domain.WrapError(domain.ErrOCR, "ocr "+doc.Filename, err)
}
