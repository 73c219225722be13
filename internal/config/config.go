package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	ProcessingModeInline = "inline"
	ProcessingModeQueue  = "queue"
)

type Config struct {
	APIPort  string
	LogLevel string

	ProcessingMode string

	NATSURL                   string
	NATSSubject               string
	NATSRequestTimeoutSeconds int
	WorkerConcurrency         int

	StoragePath string

	ClassificationConfigPath string

	UploadMaxBytes     int64
	UploadAllowedTypes []string

	OCRLanguages   []string
	OCRDPI         int
	OCRMaxPages    int
	OCRPageWorkers int
	PdftoppmPath   string

	ExtractorProvider       string
	ExtractorTimeoutSeconds int
	GeminiAPIKey            string
	GeminiModel             string
	OllamaURL               string
	OllamaModel             string

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
	APIMaxConnections     int
	APIRequestTimeoutSecs int

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8000"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		ProcessingMode: strings.ToLower(mustEnv("PROCESSING_MODE", ProcessingModeInline)),

		NATSURL:                   mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:               mustEnv("NATS_SUBJECT", "documents.process"),
		NATSRequestTimeoutSeconds: mustEnvInt("NATS_REQUEST_TIMEOUT_SECONDS", 120),
		WorkerConcurrency:         mustEnvInt("WORKER_CONCURRENCY", 2),

		StoragePath: mustEnv("STORAGE_PATH", "./data/uploads"),

		ClassificationConfigPath: mustEnv("CLASSIFICATION_CONFIG_PATH", "./config.json"),

		UploadMaxBytes:     int64(mustEnvInt("UPLOAD_MAX_BYTES", 10*1024*1024)),
		UploadAllowedTypes: mustEnvList("UPLOAD_ALLOWED_TYPES", []string{"application/pdf", "image/jpeg", "image/png", "image/jpg"}),

		OCRLanguages:   mustEnvList("OCR_LANGUAGES", []string{"eng"}),
		OCRDPI:         mustEnvInt("OCR_DPI", 300),
		OCRMaxPages:    mustEnvInt("OCR_MAX_PAGES", 5),
		OCRPageWorkers: mustEnvInt("OCR_PAGE_WORKERS", 1),
		PdftoppmPath:   mustEnv("PDFTOPPM_PATH", "pdftoppm"),

		ExtractorProvider:       strings.ToLower(mustEnv("EXTRACTOR_PROVIDER", "mock")),
		ExtractorTimeoutSeconds: mustEnvInt("EXTRACTOR_TIMEOUT_SECONDS", 60),
		GeminiAPIKey:            mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:             mustEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OllamaURL:               mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:             mustEnv("OLLAMA_MODEL", "llama3.1:8b"),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 4),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 2000),
		APIMaxConnections:     mustEnvInt("API_MAX_CONNECTIONS", 256),
		APIRequestTimeoutSecs: mustEnvInt("API_REQUEST_TIMEOUT_SECONDS", 180),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// mustEnvList splits a comma separated value, dropping empty items.
func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
