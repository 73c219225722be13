package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

const serviceName = "scan-classifier"

// multipartOverhead is allowed on top of the upload limit for form
// boundaries and part headers.
const multipartOverhead = 1 << 20

type DocumentUploader interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (*domain.ProcessResult, error)
}

// UploadRecorder receives per-upload telemetry. Optional.
type UploadRecorder interface {
	RecordUpload(service, outcome, documentType string, size int64, duration time.Duration)
}

type Router struct {
	cfg        config.Config
	uploader   DocumentUploader
	classifier ports.TextClassifier
	recorder   UploadRecorder
	metrics    http.Handler
	checks     map[string]func() error
}

func NewRouter(cfg config.Config, uploader DocumentUploader, classifier ports.TextClassifier) *Router {
	return &Router{
		cfg:        cfg,
		uploader:   uploader,
		classifier: classifier,
	}
}

// WithMetrics serves handler on /metrics and reports uploads to recorder.
func (rt *Router) WithMetrics(handler http.Handler, recorder UploadRecorder) *Router {
	rt.metrics = handler
	rt.recorder = recorder
	return rt
}

// WithHealthCheck adds a dependency probe reported by /health. A failing
// probe turns the response into 503.
func (rt *Router) WithHealthCheck(name string, check func() error) *Router {
	if rt.checks == nil {
		rt.checks = make(map[string]func() error)
	}
	rt.checks[name] = check
	return rt
}

func (rt *Router) Handler() http.Handler {
	upload := backpressureMiddleware(
		http.HandlerFunc(rt.uploadDocument),
		rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.root)
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/upload", upload)
	mux.Handle("/v1/documents", upload)
	mux.HandleFunc("/v1/classify", rt.classifyText)
	mux.HandleFunc("/openapi.yaml", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Document Classifier API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"upload":   "POST /upload",
			"classify": "POST /v1/classify",
			"health":   "GET /health",
			"openapi":  "GET /openapi.yaml",
		},
	})
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	payload := map[string]any{
		"status":  "healthy",
		"message": "Document Classifier API is running",
	}
	if len(rt.checks) > 0 {
		deps := make(map[string]string, len(rt.checks))
		for name, check := range rt.checks {
			if err := check(); err != nil {
				deps[name] = err.Error()
				statusCode = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				continue
			}
			deps[name] = "ok"
		}
		payload["dependencies"] = deps
	}
	writeJSON(w, statusCode, payload)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	start := time.Now()

	maxBytes := rt.cfg.UploadMaxBytes
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rt.recordUpload("too_large", "", 0, start)
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "invalid_input: request body too large"})
			return
		}
		rt.recordUpload("invalid_input", "", 0, start)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if maxBytes > 0 && fileHeader.Size > maxBytes {
		rt.recordUpload("too_large", "", fileHeader.Size, start)
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "invalid_input: file size too large",
		})
		return
	}

	result, err := rt.uploader.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.recordUpload(domain.Stage(err), "", fileHeader.Size, start)
		writeError(w, err)
		return
	}

	rt.recordUpload("success", result.DocumentType, fileHeader.Size, start)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) classifyText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, multipartOverhead)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	result := rt.classifier.ClassifyText(req.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"document_type":    result.DocumentType,
		"confidence":       result.Confidence,
		"keyword_matches":  result.KeywordCounts(),
		"detailed_matches": result.Detailed(),
	})
}

func (rt *Router) openAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) recordUpload(outcome, documentType string, size int64, start time.Time) {
	if rt.recorder == nil {
		return
	}
	rt.recorder.RecordUpload(serviceName, outcome, documentType, size, time.Since(start))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
		"error": domain.Stage(err) + ": " + err.Error(),
	})
}
