package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrRasterization      = errors.New("pdf rasterization failed")
	ErrImageDecode        = errors.New("image decode failed")
	ErrInsufficientText   = errors.New("no meaningful text could be extracted from the document")
	ErrOCR                = errors.New("ocr processing failed")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Stage names the pipeline stage a fatal error belongs to.
func Stage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case IsKind(err, ErrRasterization):
		return "rasterization"
	case IsKind(err, ErrImageDecode):
		return "image_decode"
	case IsKind(err, ErrInsufficientText):
		return "insufficient_text"
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	case IsKind(err, ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}

// KindFromStage is the inverse of Stage. It is used to rebuild typed errors
// that crossed a process boundary as plain strings.
func KindFromStage(stage string) error {
	switch stage {
	case "unsupported_format":
		return ErrUnsupportedFormat
	case "rasterization":
		return ErrRasterization
	case "image_decode":
		return ErrImageDecode
	case "insufficient_text":
		return ErrInsufficientText
	case "invalid_input":
		return ErrInvalidInput
	case "temporary":
		return ErrTemporary
	default:
		return nil
	}
}
