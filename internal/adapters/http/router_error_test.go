package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/scan-classifier/internal/config"
	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

func TestUploadMapsDomainErrorsToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"unsupported", domain.WrapError(domain.ErrUnsupportedFormat, "validate upload", errors.New("text/plain")), http.StatusBadRequest, "unsupported_format"},
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New("empty")), http.StatusBadRequest, "invalid_input"},
		{"rasterization", domain.WrapError(domain.ErrRasterization, "rasterize", errors.New("bad pdf")), http.StatusUnprocessableEntity, "rasterization"},
		{"decode", domain.WrapError(domain.ErrImageDecode, "decode", errors.New("bad png")), http.StatusUnprocessableEntity, "image_decode"},
		{"no text", domain.WrapError(domain.ErrInsufficientText, "assemble text", errors.New("2 characters")), http.StatusUnprocessableEntity, "insufficient_text"},
		{"temporary", domain.WrapError(domain.ErrTemporary, "nats.request", errors.New("no responders")), http.StatusServiceUnavailable, "temporary"},
		{"internal", fmt.Errorf("open stored document: %w", errors.New("boom")), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(config.Config{}, &uploaderFake{err: tc.err}, &classifierFake{}).Handler()

			body, contentType := multipartBody(t, "file", "a.pdf", "application/pdf", []byte("%PDF"))
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", contentType)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, res.Code)
			}
			var resp map[string]string
			if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if !strings.HasPrefix(resp["error"], tc.stage+": ") {
				t.Fatalf("expected error prefixed with %q, got %q", tc.stage, resp["error"])
			}
		})
	}
}

func TestMapErrorToHTTPStatusMaxBytes(t *testing.T) {
	err := fmt.Errorf("read body: %w", &http.MaxBytesError{Limit: 10})
	if got := mapErrorToHTTPStatus(err); got != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", got)
	}
}
