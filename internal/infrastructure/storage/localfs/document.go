package localfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// ReadDocument loads a local file as pipeline input, inferring the media
// kind from its extension.
func ReadDocument(path string, maxBytes int64) (domain.RawDocument, error) {
	kind := domain.MediaKindFromFilename(path)
	if kind == "" {
		return domain.RawDocument{}, domain.WrapError(domain.ErrUnsupportedFormat, "read document",
			fmt.Errorf("unsupported file extension %q", filepath.Ext(path)))
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.RawDocument{}, domain.WrapError(domain.ErrInvalidInput, "read document", err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return domain.RawDocument{}, domain.WrapError(domain.ErrInvalidInput, "read document",
			fmt.Errorf("file size too large, maximum allowed size is %d bytes", maxBytes))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RawDocument{}, domain.WrapError(domain.ErrInvalidInput, "read document", err)
	}
	return domain.RawDocument{
		Filename: filepath.Base(path),
		Kind:     kind,
		Content:  content,
	}, nil
}
