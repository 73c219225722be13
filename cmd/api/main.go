package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/scan-classifier/internal/adapters/http"
	"github.com/kirillkom/scan-classifier/internal/bootstrap"
	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/observability/logging"
	"github.com/kirillkom/scan-classifier/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	if _, err := httpadapter.LoadOpenAPI(); err != nil {
		slog.Error("openapi_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	pipelineMetrics := metrics.NewPipelineMetrics(serviceName, httpMetrics.Registerer())

	app, err := bootstrap.New(cfg, bootstrap.Options{
		Observer:        pipelineMetrics,
		BreakerObserver: pipelineMetrics.ObserveBreakerTransition,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if !app.ValidateTools() {
		slog.Warn("ocr_tooling_incomplete", "hint", "install tesseract-ocr and poppler-utils")
	}

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				_ = app.Store.Reload()
			}
		}
	}()

	routes := httpadapter.NewRouter(cfg, app.Ingest, app.Classifier).
		WithMetrics(httpMetrics.Handler(), httpMetrics)
	if app.Queue != nil {
		routes.WithHealthCheck("nats", app.Queue.Ping)
	}
	router := routes.Handler()
	server := &http.Server{
		Handler:      httpMetrics.Middleware(serviceName, router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.APIRequestTimeoutSecs) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		slog.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		slog.Info("api_listening",
			"port", cfg.APIPort,
			"processing_mode", cfg.ProcessingMode,
			"extractor", cfg.ExtractorProvider,
			"max_connections", cfg.APIMaxConnections,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
