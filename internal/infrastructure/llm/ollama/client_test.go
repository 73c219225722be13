package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/resilience"
)

func TestExtractorSendsTypedPromptAndParsesFields(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"invoice_number\":\"INV-2024-001\",\"total_amount\":\"$100\"}"}`))
	}))
	defer server.Close()

	extractor := NewExtractor(New(server.URL+"/", "llama3"))
	fields, err := extractor.ExtractFields(context.Background(), "Invoice", "Invoice Number: INV-2024-001")
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if fields["invoice_number"] != "INV-2024-001" || fields["total_amount"] != "$100" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if captured["model"] != "llama3" || captured["format"] != "json" {
		t.Fatalf("unexpected request: %+v", captured)
	}
	prompt, _ := captured["prompt"].(string)
	if !strings.Contains(prompt, "Document type: Invoice") || !strings.Contains(prompt, "INV-2024-001") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
}

func TestExtractorIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewExtractor(New(server.URL, "missing")).ExtractFields(context.Background(), "Contract", "text")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("404 must not be reported as temporary: %v", err)
	}
}

func TestExtractorRetriesUnavailableBackend(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"{\"contract_title\":\"Service Agreement\"}"}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	client := NewWithOptions(server.URL, "llama3", Options{ResilienceExecutor: executor})
	fields, err := NewExtractor(client).ExtractFields(context.Background(), "Contract", "the parties")
	if err != nil {
		t.Fatalf("ExtractFields() error = %v", err)
	}
	if calls.Load() != 2 || fields["contract_title"] != "Service Agreement" {
		t.Fatalf("unexpected result after %d calls: %+v", calls.Load(), fields)
	}
}

func TestExtractorMarksExhaustedRetriesTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewExtractor(New(server.URL, "llama3")).ExtractFields(context.Background(), "Invoice", "text")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}
