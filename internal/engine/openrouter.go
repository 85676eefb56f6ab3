package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kalambet/blueprint/internal/proxy"
)

// OpenRouterEngine serves chat through the hosted OpenRouter API. Models are
// remote, so PullModel is a no-op and HasModel consults the catalog.
type OpenRouterEngine struct {
	client *proxy.Client
}

// NewOpenRouterEngine creates an engine authenticated with apiKey.
func NewOpenRouterEngine(apiKey string) *OpenRouterEngine {
	return &OpenRouterEngine{client: proxy.NewClient(apiKey)}
}

// NewOpenRouterEngineWithBaseURL targets a custom endpoint. Used in tests.
func NewOpenRouterEngineWithBaseURL(apiKey, baseURL string) *OpenRouterEngine {
	return &OpenRouterEngine{client: proxy.NewClientWithBaseURL(apiKey, baseURL)}
}

// Chat sends a non-streaming completion. A schema is passed as a leading
// system instruction since the hosted API does not enforce one.
func (e *OpenRouterEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	msgs := make([]proxy.Message, 0, len(messages)+1)
	if jsonSchema != nil {
		b, err := json.Marshal(jsonSchema)
		if err != nil {
			return "", fmt.Errorf("marshaling schema: %w", err)
		}
		msgs = append(msgs, proxy.Message{
			Role:    RoleSystem,
			Content: "Respond with a single JSON object matching this schema and nothing else:\n" + string(b),
		})
	}
	for _, m := range messages {
		msgs = append(msgs, proxy.Message{Role: m.Role, Content: m.Content})
	}
	req := proxy.CompletionRequest{Model: model, Messages: msgs}
	if jsonSchema != nil {
		zero := 0.0
		req.Temperature = &zero
	}
	return e.client.Complete(ctx, req)
}

func (e *OpenRouterEngine) IsRunning(ctx context.Context) bool {
	_, err := e.client.ListModels(ctx)
	return err == nil
}

func (e *OpenRouterEngine) ListModels(ctx context.Context) ([]string, error) {
	return e.client.ListModels(ctx)
}

func (e *OpenRouterEngine) HasModel(ctx context.Context, name string) bool {
	names, err := e.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (e *OpenRouterEngine) PullModel(_ context.Context, _ string, _ func(PullProgress)) error {
	return nil
}
