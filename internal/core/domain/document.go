package domain

import (
	"image"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

type MediaKind string

const (
	MediaKindPDF   MediaKind = "pdf"
	MediaKindImage MediaKind = "image"
)

// RawDocument is the immutable pipeline input.
type RawDocument struct {
	Filename string
	Kind     MediaKind
	Content  []byte
}

func (d RawDocument) Size() int64 {
	return int64(len(d.Content))
}

// PageImage is one decoded raster page. Index is zero-based.
type PageImage struct {
	Index int
	Image image.Image
	DPI   int
}

// MediaKindFromContentType maps a declared content type to a media kind.
// Unknown types map to the empty kind.
func MediaKindFromContentType(contentType string) MediaKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mediaType == "application/pdf":
		return MediaKindPDF
	case strings.HasPrefix(mediaType, "image/"):
		return MediaKindImage
	default:
		return ""
	}
}

func MediaKindFromFilename(name string) MediaKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MediaKindPDF
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp":
		return MediaKindImage
	default:
		return ""
	}
}

type ExtractionStatus string

const (
	ExtractionStatusOK       ExtractionStatus = "ok"
	ExtractionStatusDegraded ExtractionStatus = "degraded"
	ExtractionStatusSkipped  ExtractionStatus = "skipped"
)

type ProcessingInfo struct {
	FileName         string           `json:"file_name"`
	FileSize         int64            `json:"file_size"`
	TextLength       int              `json:"text_length"`
	PagesProcessed   int              `json:"pages_processed"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
}

// ProcessResult is the response returned to the caller of the upload flow.
type ProcessResult struct {
	DocumentType    string                  `json:"document_type"`
	Confidence      float64                 `json:"confidence"`
	KeywordMatches  map[string]int          `json:"keyword_matches"`
	DetailedMatches map[string]KeywordScore `json:"detailed_matches"`
	StructuredData  map[string]any          `json:"structured_data"`
	ProcessingInfo  ProcessingInfo          `json:"processing_info"`
}

// ProcessJob is the queue message describing a stored upload.
type ProcessJob struct {
	ID          string    `json:"id"`
	StorageKey  string    `json:"storage_key"`
	Filename    string    `json:"filename"`
	Kind        MediaKind `json:"kind"`
	Size        int64     `json:"size"`
	SubmittedAt time.Time `json:"submitted_at"`
}
