package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

type uploaderFake struct {
	err         error
	gotName     string
	gotType     string
	gotBody     []byte
	invocations int
}

func (f *uploaderFake) Upload(_ context.Context, filename, contentType string, body io.Reader) (*domain.ProcessResult, error) {
	f.invocations++
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.gotName, f.gotType, f.gotBody = filename, contentType, raw
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProcessResult{
		DocumentType:   "Invoice",
		Confidence:     0.5,
		KeywordMatches: map[string]int{"Invoice": 2},
		StructuredData: map[string]any{"invoice_number": "INV-1"},
		ProcessingInfo: domain.ProcessingInfo{
			FileName:         filename,
			FileSize:         int64(len(raw)),
			ExtractionStatus: domain.ExtractionStatusOK,
		},
	}, nil
}

type classifierFake struct {
	got string
}

func (f *classifierFake) ClassifyText(text string) domain.ClassificationResult {
	f.got = text
	return domain.ClassificationResult{
		DocumentType: "Contract",
		Confidence:   0.25,
		Scores: []domain.KeywordScore{
			{Type: "Contract", Count: 1, MatchedKeywords: []string{"agreement"}, TotalPossible: 4},
		},
	}
}

type recorderFake struct {
	outcomes []string
}

func (f *recorderFake) RecordUpload(_, outcome, _ string, _ int64, _ time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, &uploaderFake{}, &classifierFake{}).Handler()
}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthEndpoints(t *testing.T) {
	handler := newTestHandler(config.Config{})
	for _, path := range []string{"/", "/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, res.Code)
		}
		if res.Header().Get(requestIDHeader) == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestHealthReportsFailingDependency(t *testing.T) {
	handler := NewRouter(config.Config{}, &uploaderFake{}, &classifierFake{}).
		WithHealthCheck("nats", func() error { return errors.New("nats: connection closed") }).
		Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	var resp struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" || !strings.Contains(resp.Dependencies["nats"], "connection closed") {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	uploader := &uploaderFake{}
	recorder := &recorderFake{}
	handler := NewRouter(config.Config{UploadMaxBytes: 1024}, uploader, &classifierFake{}).
		WithMetrics(http.NotFoundHandler(), recorder).
		Handler()

	for _, path := range []string{"/upload", "/v1/documents"} {
		body, contentType := multipartBody(t, "file", "scan.png", "image/png", []byte("png-bytes"))
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", contentType)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, res.Code, res.Body.String())
		}
		var result domain.ProcessResult
		if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if result.DocumentType != "Invoice" || result.ProcessingInfo.FileName != "scan.png" {
			t.Fatalf("unexpected result: %+v", result)
		}
	}
	if uploader.gotName != "scan.png" || uploader.gotType != "image/png" || string(uploader.gotBody) != "png-bytes" {
		t.Fatalf("unexpected upload: %q %q %q", uploader.gotName, uploader.gotType, uploader.gotBody)
	}
	if len(recorder.outcomes) != 2 || recorder.outcomes[0] != "success" {
		t.Fatalf("unexpected recorded outcomes: %+v", recorder.outcomes)
	}
}

func TestUploadDocumentRequiresFileField(t *testing.T) {
	uploader := &uploaderFake{}
	handler := NewRouter(config.Config{}, uploader, &classifierFake{}).Handler()

	body, contentType := multipartBody(t, "attachment", "scan.png", "image/png", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if uploader.invocations != 0 {
		t.Fatalf("uploader must not run without a file")
	}
}

func TestUploadDocumentRejectsOversizeWith413(t *testing.T) {
	uploader := &uploaderFake{}
	handler := NewRouter(config.Config{UploadMaxBytes: 8}, uploader, &classifierFake{}).Handler()

	body, contentType := multipartBody(t, "file", "big.pdf", "application/pdf", []byte(strings.Repeat("x", 64)))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if uploader.invocations != 0 {
		t.Fatalf("uploader must not run for oversize files")
	}
}

func TestUploadDocumentMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestClassifyText(t *testing.T) {
	classifier := &classifierFake{}
	handler := NewRouter(config.Config{}, &uploaderFake{}, classifier).Handler()

	payload, _ := json.Marshal(map[string]string{"text": "service agreement"})
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if classifier.got != "service agreement" {
		t.Fatalf("classifier got %q", classifier.got)
	}
	var resp struct {
		DocumentType    string                         `json:"document_type"`
		KeywordMatches  map[string]int                 `json:"keyword_matches"`
		DetailedMatches map[string]domain.KeywordScore `json:"detailed_matches"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DocumentType != "Contract" || resp.KeywordMatches["Contract"] != 1 || resp.DetailedMatches["Contract"].TotalPossible != 4 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClassifyTextRequiresText(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(`{"text":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
