package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
	"github.com/kirillkom/scan-classifier/internal/core/usecase"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/classification"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/imageproc"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/llm/mock"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/ocr/tesseract"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/queue/nats"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/raster/poppler"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/storage/localfs"
)

const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

type Options struct {
	// Observer receives pipeline telemetry. Nil discards it.
	Observer ports.PipelineObserver
	// BreakerObserver receives circuit breaker transitions of the
	// extractor and queue executors.
	BreakerObserver resilience.StateObserver
	// ConnectQueue dials NATS even in inline mode, e.g. for workers.
	ConnectQueue bool
}

type App struct {
	Config config.Config

	Store      *classification.Store
	Classifier *usecase.KeywordClassifier
	Processor  *usecase.ProcessDocumentUseCase
	Stored     *usecase.StoredDocumentProcessor
	Ingest     *usecase.IngestDocumentUseCase
	Queue      *nats.Queue

	engine   *tesseract.Engine
	renderer *poppler.Renderer
	closeFn  func()
}

func New(cfg config.Config, opts Options) (*App, error) {
	observer := opts.Observer
	if observer == nil {
		observer = ports.NopObserver{}
	}

	store, err := classification.Open(cfg.ClassificationConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load classification config: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	codec := imageproc.NewCodec()
	renderer := poppler.New(cfg.PdftoppmPath)
	engine := tesseract.New(cfg.OCRLanguages...)

	runner := usecase.NewStrategyRunner(engine, usecase.DefaultStrategies(), observer)
	rasterizer := usecase.NewPageRasterizer(renderer, codec, usecase.RasterizerOptions{
		DPI:      cfg.OCRDPI,
		MaxPages: cfg.OCRMaxPages,
	})
	extraction := usecase.NewTextExtractionUseCase(rasterizer, runner, codec, observer, usecase.TextExtractionOptions{
		PageWorkers: cfg.OCRPageWorkers,
	})

	structured, err := NewStructuredExtractor(cfg, opts.BreakerObserver)
	if err != nil {
		return nil, fmt.Errorf("init structured extractor: %w", err)
	}

	classifier := usecase.NewKeywordClassifier(store, observer)
	processor := usecase.NewProcessDocumentUseCase(extraction, classifier, structured, observer)

	var queue *nats.Queue
	if cfg.ProcessingMode == config.ProcessingModeQueue || opts.ConnectQueue {
		queueExecutor := resilience.NewExecutor(resilience.QueueConfig())
		if opts.BreakerObserver != nil {
			queueExecutor.WithStateObserver(opts.BreakerObserver)
		}
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			RequestTimeout:     time.Duration(cfg.NATSRequestTimeoutSeconds) * time.Second,
			Concurrency:        cfg.WorkerConcurrency,
			ResilienceExecutor: queueExecutor,
		})
		if err != nil {
			return nil, fmt.Errorf("init job queue: %w", err)
		}
	}

	policy := usecase.UploadPolicy{
		MaxBytes:     cfg.UploadMaxBytes,
		AllowedTypes: cfg.UploadAllowedTypes,
	}
	var ingest *usecase.IngestDocumentUseCase
	if cfg.ProcessingMode == config.ProcessingModeQueue {
		ingest = usecase.NewIngestDocumentUseCase(storage, processor, queue, policy)
	} else {
		ingest = usecase.NewIngestDocumentUseCase(storage, processor, nil, policy)
	}

	return &App{
		Config: cfg,

		Store:      store,
		Classifier: classifier,
		Processor:  processor,
		Stored:     usecase.NewStoredDocumentProcessor(storage, processor),
		Ingest:     ingest,
		Queue:      queue,

		engine:   engine,
		renderer: renderer,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
		},
	}, nil
}

// NewStructuredExtractor selects the field extractor named by
// EXTRACTOR_PROVIDER. "none" returns a nil extractor and processing
// reports extraction as skipped.
func NewStructuredExtractor(cfg config.Config, breakerObserver resilience.StateObserver) (ports.StructuredExtractor, error) {
	newExecutor := func() *resilience.Executor {
		executor := resilience.NewExecutor(resilience.ExtractorConfig())
		if breakerObserver != nil {
			executor.WithStateObserver(breakerObserver)
		}
		return executor
	}

	switch cfg.ExtractorProvider {
	case "", ProviderMock:
		return mock.New(), nil
	case ProviderNone:
		return nil, nil
	case ProviderGemini:
		extractor, err := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, newExecutor())
		if err != nil {
			return nil, err
		}
		return extractor, nil
	case ProviderOllama:
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaModel, ollama.Options{
			Timeout:            time.Duration(cfg.ExtractorTimeoutSeconds) * time.Second,
			ResilienceExecutor: newExecutor(),
		})
		return ollama.NewExtractor(client), nil
	default:
		return nil, fmt.Errorf("unknown extractor provider %q", cfg.ExtractorProvider)
	}
}

// ValidateTools logs missing OCR and rasterization tooling. Missing tools
// are not fatal: requests needing them fail with a pipeline error.
func (a *App) ValidateTools() bool {
	ok := true
	slog.Info("tesseract_version", "version", tesseract.Version())
	if err := a.engine.Validate(); err != nil {
		slog.Warn("tesseract_unavailable", "error", err)
		ok = false
	}
	if err := a.renderer.Validate(); err != nil {
		slog.Warn("pdftoppm_unavailable", "error", err)
		ok = false
	}
	return ok
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
