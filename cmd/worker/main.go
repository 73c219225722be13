package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/scan-classifier/internal/bootstrap"
	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/observability/logging"
	"github.com/kirillkom/scan-classifier/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	pipelineMetrics := metrics.NewPipelineMetrics(serviceName, workerMetrics.Registerer())

	app, err := bootstrap.New(cfg, bootstrap.Options{
		Observer:        pipelineMetrics,
		BreakerObserver: pipelineMetrics.ObserveBreakerTransition,
		ConnectQueue:    true,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if !app.ValidateTools() {
		slog.Warn("ocr_tooling_incomplete", "hint", "install tesseract-ocr and poppler-utils")
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", cfg.WorkerConcurrency)
	err = app.Queue.Serve(ctx, func(handlerCtx context.Context, job domain.ProcessJob) (*domain.ProcessResult, error) {
		if !job.SubmittedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(job.SubmittedAt))
		}
		workerMetrics.StartDocument()
		start := time.Now()

		result, err := app.Stored.Handle(handlerCtx, job)
		if err != nil {
			workerMetrics.FinishDocument(serviceName, domain.Stage(err), "", time.Since(start))
			slog.Error("document_process_failed", "job_id", job.ID, "filename", job.Filename, "error", err)
			return nil, err
		}
		workerMetrics.FinishDocument(serviceName, "success", result.DocumentType, time.Since(start))
		slog.Info("document_processed",
			"job_id", job.ID,
			"filename", job.Filename,
			"document_type", result.DocumentType,
			"extraction_status", result.ProcessingInfo.ExtractionStatus,
		)
		return result, nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker_serve_failed", "error", err)
		os.Exit(1)
	}
}
