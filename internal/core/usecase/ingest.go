package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

const DefaultMaxUploadBytes = 10 * 1024 * 1024

func DefaultAllowedContentTypes() []string {
	return []string{"application/pdf", "image/jpeg", "image/png", "image/jpg"}
}

type UploadPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

func (p UploadPolicy) normalize() UploadPolicy {
	out := p
	if out.MaxBytes <= 0 {
		out.MaxBytes = DefaultMaxUploadBytes
	}
	if len(out.AllowedTypes) == 0 {
		out.AllowedTypes = DefaultAllowedContentTypes()
	}
	return out
}

func (p UploadPolicy) allows(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	for _, allowed := range p.AllowedTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), mediaType) {
			return true
		}
	}
	return false
}

// IngestDocumentUseCase validates an upload, keeps it in temporary storage
// for the duration of processing and removes it afterwards.
type IngestDocumentUseCase struct {
	storage ports.ObjectStorage
	stored  *StoredDocumentProcessor
	queue   ports.JobQueue
	policy  UploadPolicy
}

// NewIngestDocumentUseCase processes inline when queue is nil.
func NewIngestDocumentUseCase(
	storage ports.ObjectStorage,
	processor ports.DocumentProcessor,
	queue ports.JobQueue,
	policy UploadPolicy,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		storage: storage,
		stored:  NewStoredDocumentProcessor(storage, processor),
		queue:   queue,
		policy:  policy.normalize(),
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, contentType string,
	body io.Reader,
) (*domain.ProcessResult, error) {
	if !uc.policy.allows(contentType) {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "validate upload",
			fmt.Errorf("unsupported file type: %s. Allowed types: %s", contentType, strings.Join(uc.policy.AllowedTypes, ", ")))
	}

	kind := domain.MediaKindFromContentType(contentType)
	if kind == "" {
		kind = domain.MediaKindFromFilename(filename)
	}

	id := uuid.NewString()
	storageKey := id + strings.ToLower(filepath.Ext(sanitizeFilename(filename)))

	size, err := uc.storage.Save(ctx, storageKey, io.LimitReader(body, uc.policy.MaxBytes+1))
	defer uc.cleanup(storageKey)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if size > uc.policy.MaxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("file size too large, maximum allowed size is %d bytes", uc.policy.MaxBytes))
	}
	if size == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New("uploaded file is empty"))
	}

	job := domain.ProcessJob{
		ID:          id,
		StorageKey:  storageKey,
		Filename:    filename,
		Kind:        kind,
		Size:        size,
		SubmittedAt: time.Now().UTC(),
	}
	if uc.queue != nil {
		return uc.queue.Submit(ctx, job)
	}
	return uc.stored.Handle(ctx, job)
}

func (uc *IngestDocumentUseCase) cleanup(key string) {
	if err := uc.storage.Delete(context.Background(), key); err != nil {
		slog.Warn("temp_file_cleanup_failed", "key", key, "error", err)
	}
}

// StoredDocumentProcessor loads a stored upload and runs the processing flow.
// Queue workers use it directly.
type StoredDocumentProcessor struct {
	storage   ports.ObjectStorage
	processor ports.DocumentProcessor
}

func NewStoredDocumentProcessor(storage ports.ObjectStorage, processor ports.DocumentProcessor) *StoredDocumentProcessor {
	return &StoredDocumentProcessor{storage: storage, processor: processor}
}

func (p *StoredDocumentProcessor) Handle(ctx context.Context, job domain.ProcessJob) (*domain.ProcessResult, error) {
	reader, err := p.storage.Open(ctx, job.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}

	return p.processor.Process(ctx, domain.RawDocument{
		Filename: job.Filename,
		Kind:     job.Kind,
		Content:  content,
	})
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
