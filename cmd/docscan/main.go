package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/scan-classifier/internal/bootstrap"
	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/scan-classifier/internal/observability/logging"
	"github.com/kirillkom/scan-classifier/internal/report"
)

func main() {
	xlsxPath := flag.String("xlsx", "", "also write an XLSX report to this path")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: docscan [-xlsx report.xlsx] FILE...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	cfg.ProcessingMode = config.ProcessingModeInline
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "docscan", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, bootstrap.Options{})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	app.ValidateTools()

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	rows := make([]report.Row, 0, flag.NArg())
	failed := 0
	for _, path := range flag.Args() {
		if ctx.Err() != nil {
			break
		}
		row := report.Row{Path: path}
		doc, err := localfs.ReadDocument(path, cfg.UploadMaxBytes)
		if err == nil {
			row.Result, err = app.Processor.Process(ctx, doc)
		}
		row.Err = err
		rows = append(rows, row)

		if err != nil {
			failed++
			slog.Error("document_process_failed", "path", path, "stage", domain.Stage(err), "error", err)
			_ = encoder.Encode(map[string]string{"file": path, "error": err.Error()})
			continue
		}
		_ = encoder.Encode(map[string]any{"file": path, "result": row.Result})
	}

	if *xlsxPath != "" {
		if err := writeReport(*xlsxPath, rows); err != nil {
			slog.Error("report_write_failed", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
		slog.Info("report_written", "path", *xlsxPath, "documents", len(rows))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func writeReport(path string, rows []report.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteXLSX(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
