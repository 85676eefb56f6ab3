package elicit

import (
	"context"
	"fmt"

	"github.com/kalambet/blueprint/internal/engine"
	"github.com/kalambet/blueprint/internal/requirements"
)

// Normalize asks the generator to restate free text, such as a partial
// session result, as a document under the document schema. The reply must
// pass the acceptance gate.
func Normalize(ctx context.Context, gen Generator, model, raw string) (requirements.Document, error) {
	msgs := []engine.Message{
		{Role: string(RoleSystem), Content: normalizePrompt},
		{Role: string(RoleUser), Content: raw},
	}
	reply, err := gen.Chat(ctx, model, msgs, requirements.Schema())
	if err != nil {
		return requirements.Document{}, fmt.Errorf("normalizing requirements: %w", err)
	}
	doc, ok := requirements.Accept(requirements.Extract(reply))
	if !ok {
		return requirements.Document{}, fmt.Errorf("normalized reply is not a requirements document")
	}
	return doc, nil
}
