package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/scan-classifier/internal/adapters/mcp"
	"github.com/kirillkom/scan-classifier/internal/bootstrap"
	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries the MCP protocol.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))

	cfg.ProcessingMode = config.ProcessingModeInline
	app, err := bootstrap.New(cfg, bootstrap.Options{})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	app.ValidateTools()

	tools := mcpadapter.NewTools(app.Classifier, app.Processor, cfg.UploadMaxBytes)
	if err := server.ServeStdio(tools.Server()); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
