package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"slices"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// defaultEngineMode is Tesseract's own OEM default. gosseract fixes the
// engine mode at init, so only the default can be honoured per call.
const defaultEngineMode = 3

// Engine implements ports.OCREngine with a fresh gosseract client per call;
// clients are not safe for concurrent use.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *Engine) Recognize(ctx context.Context, page domain.PageImage, params domain.OCRParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if params.EngineMode != 0 && params.EngineMode != defaultEngineMode {
		return "", fmt.Errorf("tesseract: engine mode %d is not supported", params.EngineMode)
	}
	if page.Image == nil {
		return "", fmt.Errorf("tesseract: page %d has no image", page.Index)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, page.Image); err != nil {
		return "", fmt.Errorf("encode page %d: %w", page.Index, err)
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if params.PageSegMode != 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(params.PageSegMode)); err != nil {
			return "", fmt.Errorf("set page segmentation mode %d: %w", params.PageSegMode, err)
		}
	}
	if page.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(page.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// Version reports the linked libtesseract version.
func Version() string {
	return gosseract.Version()
}

// Validate checks that every configured language has trained data installed.
func (e *Engine) Validate() error {
	c := e.clientFactory()
	defer c.Close()

	available, err := c.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("list tesseract languages: %w", err)
	}
	for _, lang := range e.languages {
		if !slices.Contains(available, lang) {
			return fmt.Errorf("tesseract language %q is not installed (available: %v)", lang, available)
		}
	}
	return nil
}
