// Package mcpadapter exposes classification and document processing as MCP
// tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/storage/localfs"
)

const (
	serverName    = "scan-classifier"
	serverVersion = "1.0.0"
)

type Tools struct {
	classifier ports.TextClassifier
	processor  ports.DocumentProcessor
	maxBytes   int64
}

func NewTools(classifier ports.TextClassifier, processor ports.DocumentProcessor, maxBytes int64) *Tools {
	return &Tools{classifier: classifier, processor: processor, maxBytes: maxBytes}
}

func (t *Tools) Server() *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("classify_text",
		mcp.WithDescription("Classify already extracted document text by keyword matching."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Document text")),
	), t.ClassifyText)

	s.AddTool(mcp.NewTool("process_file",
		mcp.WithDescription("Run OCR, classification and structured extraction on a local PDF or image file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a PDF or image file")),
	), t.ProcessFile)

	return s
}

func (t *Tools) ClassifyText(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := t.classifier.ClassifyText(text)
	return jsonResult(map[string]any{
		"document_type":    result.DocumentType,
		"confidence":       result.Confidence,
		"keyword_matches":  result.KeywordCounts(),
		"detailed_matches": result.Detailed(),
	})
}

func (t *Tools) ProcessFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := localfs.ReadDocument(path, t.maxBytes)
	if err != nil {
		return mcp.NewToolResultError(domain.Stage(err) + ": " + err.Error()), nil
	}
	result, err := t.processor.Process(ctx, doc)
	if err != nil {
		return mcp.NewToolResultError(domain.Stage(err) + ": " + err.Error()), nil
	}
	return jsonResult(result)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
