// Package engine selects and wraps the model backends used for requirements
// elicitation and code synthesis.
package engine

import "context"

// Engine is a chat-capable model backend: a local Ollama server or the
// OpenRouter API.
type Engine interface {
	// Chat returns the assistant reply. A non-nil jsonSchema asks for a
	// reply that is a JSON document matching it.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	IsRunning(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool

	// PullModel makes name available locally. Backends without local
	// models treat it as a no-op. onProgress may be nil.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
