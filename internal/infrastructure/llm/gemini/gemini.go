package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/scan-classifier/internal/infrastructure/llm/extraction"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/resilience"
)

const DefaultModel = "gemini-1.5-flash"

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is empty")

type Extractor struct {
	apiKey   string
	model    string
	executor *resilience.Executor
}

func New(apiKey, model string, executor *resilience.Executor) (*Extractor, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{apiKey: apiKey, model: model, executor: executor}, nil
}

func (e *Extractor) Name() string { return "gemini" }

func (e *Extractor) ExtractFields(ctx context.Context, documentType, text string) (map[string]any, error) {
	fields, err := resilience.Do(ctx, e.executor, "gemini.extract", func(callCtx context.Context) (map[string]any, error) {
		reply, err := e.generate(callCtx, extraction.BuildPrompt(documentType, text))
		if err != nil {
			return nil, err
		}
		return extraction.ParseFields(reply)
	}, classifyGeminiError)
	if err != nil {
		return nil, resilience.WrapTemporary("gemini extract", err, classifyGeminiError)
	}
	return fields, nil
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return txt, nil
}

var classifyGeminiError = resilience.TransientClassifier(func(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return true
	default:
		return false
	}
})

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
