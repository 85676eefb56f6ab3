package engine

import (
	"context"

	"github.com/kalambet/blueprint/internal/ollama"
)

// OllamaEngine serves chat from a local Ollama server.
type OllamaEngine struct {
	client *ollama.Client
}

// NewOllamaEngine creates an OllamaEngine backed by an Ollama server at baseURL.
func NewOllamaEngine(baseURL string) *OllamaEngine {
	return &OllamaEngine{client: ollama.New(baseURL)}
}

// Chat forwards the schema as Ollama's structured-output format. Structured
// requests run at temperature 0.
func (e *OllamaEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	req := ollama.ChatRequest{
		Model:    model,
		Messages: make([]ollama.Message, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	if jsonSchema != nil {
		zero := 0.0
		req.Format = jsonSchema
		req.Options = &ollama.Options{Temperature: &zero}
	}
	return e.client.Chat(ctx, req)
}

func (e *OllamaEngine) IsRunning(ctx context.Context) bool {
	return e.client.IsRunning(ctx)
}

func (e *OllamaEngine) ListModels(ctx context.Context) ([]string, error) {
	return e.client.ListModels(ctx)
}

func (e *OllamaEngine) HasModel(ctx context.Context, name string) bool {
	return e.client.HasModel(ctx, name)
}

func (e *OllamaEngine) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	var cb func(ollama.PullProgress)
	if onProgress != nil {
		cb = func(p ollama.PullProgress) {
			onProgress(PullProgress(p))
		}
	}
	return e.client.PullModel(ctx, name, cb)
}
