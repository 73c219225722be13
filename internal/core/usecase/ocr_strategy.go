package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

const (
	// minAcceptedRunes is the exclusive lower bound on trimmed OCR output.
	minAcceptedRunes = 2
	previewRunes     = 100
)

// DefaultStrategies lists OCR configurations from the most structurally
// specific to the engine default.
func DefaultStrategies() []domain.OCRStrategy {
	return []domain.OCRStrategy{
		{ID: "psm3", Description: "automatic page segmentation", Params: domain.OCRParams{EngineMode: 3, PageSegMode: 3}},
		{ID: "psm6", Description: "single uniform text block", Params: domain.OCRParams{EngineMode: 3, PageSegMode: 6}},
		{ID: "psm1", Description: "automatic page segmentation with OSD", Params: domain.OCRParams{EngineMode: 3, PageSegMode: 1}},
		{ID: "default", Description: "engine default", Params: domain.OCRParams{}},
	}
}

// StrategyRunner tries OCR configurations in order and returns the first
// output that passes the acceptance test.
type StrategyRunner struct {
	engine     ports.OCREngine
	strategies []domain.OCRStrategy
	observer   ports.PipelineObserver
}

func NewStrategyRunner(engine ports.OCREngine, strategies []domain.OCRStrategy, observer ports.PipelineObserver) *StrategyRunner {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	ordered := make([]domain.OCRStrategy, len(strategies))
	copy(ordered, strategies)
	return &StrategyRunner{
		engine:     engine,
		strategies: ordered,
		observer:   observer,
	}
}

// Run never fails. An empty result means no strategy produced usable text.
func (r *StrategyRunner) Run(ctx context.Context, page domain.PageImage) (string, []domain.OcrAttempt) {
	attempts := make([]domain.OcrAttempt, 0, len(r.strategies))

	for _, strategy := range r.strategies {
		if ctx.Err() != nil {
			break
		}

		text, err := r.engine.Recognize(ctx, page, strategy.Params)
		if err != nil {
			attempt := domain.OcrAttempt{StrategyID: strategy.ID, Err: err.Error()}
			attempts = append(attempts, attempt)
			r.observer.ObserveOCRAttempt(attempt)
			slog.Warn("ocr_attempt_failed",
				"page", page.Index+1,
				"strategy", strategy.ID,
				"description", strategy.Description,
				"error", err,
			)
			continue
		}

		trimmed := strings.TrimSpace(text)
		attempt := domain.OcrAttempt{
			StrategyID: strategy.ID,
			Preview:    preview(text, previewRunes),
			Length:     utf8.RuneCountInString(text),
			Accepted:   accepted(trimmed),
		}
		attempts = append(attempts, attempt)
		r.observer.ObserveOCRAttempt(attempt)
		slog.Info("ocr_attempt",
			"page", page.Index+1,
			"strategy", strategy.ID,
			"preview", attempt.Preview,
			"length", attempt.Length,
			"accepted", attempt.Accepted,
		)

		if attempt.Accepted {
			return trimmed, attempts
		}
	}

	slog.Warn("ocr_all_strategies_failed", "page", page.Index+1, "attempts", len(attempts))
	return "", attempts
}

func accepted(trimmed string) bool {
	return utf8.RuneCountInString(trimmed) > minAcceptedRunes
}

func preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
