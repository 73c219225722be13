package ollama

import "github.com/kirillkom/scan-classifier/internal/infrastructure/resilience"

// Model-not-found and malformed replies surface as 4xx or parse errors and
// are not retried; transport failures and 5xx are.
var classifyOllamaError = resilience.TransientClassifier(nil)
