package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/scan-classifier/internal/infrastructure/llm/extraction"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/resilience"
)

const defaultTimeout = 120 * time.Second

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, model string) *Client {
	return NewWithOptions(baseURL, model, Options{})
}

func NewWithOptions(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Extractor implements ports.StructuredExtractor on top of /api/generate
// in JSON mode.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Name() string { return "ollama" }

func (e *Extractor) ExtractFields(ctx context.Context, documentType, text string) (map[string]any, error) {
	fields, err := resilience.Do(ctx, e.client.executor, "ollama.extract", func(callCtx context.Context) (map[string]any, error) {
		respText, err := e.client.generateJSON(callCtx, extraction.BuildPrompt(documentType, text))
		if err != nil {
			return nil, err
		}
		return extraction.ParseFields(respText)
	}, classifyOllamaError)
	if err != nil {
		return nil, resilience.WrapTemporary("ollama extract", err, classifyOllamaError)
	}
	return fields, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
