package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/blueprint/internal/engine"
	"github.com/kalambet/blueprint/internal/requirements"
)

// DefaultContextTokens bounds the generated-file context sent with each
// synthesis request.
const DefaultContextTokens = 6000

// Request is everything the synthesizer is told about one file.
type Request struct {
	Path     string
	Task     string
	Purpose  string
	Document requirements.Document
	Plan     []string
	Context  *ProjectContext
}

// Synthesizer produces source text for one file.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (string, error)
}

// Generator is the chat capability a ModelSynthesizer needs. engine.Engine
// satisfies it.
type Generator interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// ModelSynthesizer asks a code model for each file.
type ModelSynthesizer struct {
	gen           Generator
	model         string
	contextTokens int
}

// NewModelSynthesizer creates a synthesizer. contextTokens <= 0 uses
// DefaultContextTokens.
func NewModelSynthesizer(gen Generator, model string, contextTokens int) *ModelSynthesizer {
	if contextTokens <= 0 {
		contextTokens = DefaultContextTokens
	}
	return &ModelSynthesizer{gen: gen, model: model, contextTokens: contextTokens}
}

func (s *ModelSynthesizer) Synthesize(ctx context.Context, req Request) (string, error) {
	msgs, err := BuildPrompt(req, s.contextTokens)
	if err != nil {
		return "", err
	}
	return s.gen.Chat(ctx, s.model, msgs, nil)
}

const synthSystemPrompt = `You are a code generator. You write exactly one file per request.

Rules:
- Output only the file contents: no explanations, no markdown fences, no file path header.
- Keep imports, exports and API contracts consistent with the files already generated.
- Include error handling.
- React files use JSX; CSS files contain only CSS; backend files follow Node.js/Express conventions.`

// BuildPrompt renders the synthesis messages for req. Generated files are
// included newest first until maxTokens is reached; older files beyond the
// budget are listed by path only.
func BuildPrompt(req Request, maxTokens int) ([]engine.Message, error) {
	doc, err := json.MarshalIndent(req.Document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding requirements: %w", err)
	}
	files, err := contextJSON(req.Context, maxTokens)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n\n", req.Path)
	fmt.Fprintf(&sb, "Project context:\n%s\n\n", files)
	fmt.Fprintf(&sb, "Requirements:\n%s\n\n", doc)
	sb.WriteString("Implementation plan:\n")
	for i, step := range req.Plan {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&sb, "\nCurrent task: %s\n", req.Task)
	fmt.Fprintf(&sb, "File purpose: %s\n", req.Purpose)

	return []engine.Message{
		{Role: engine.RoleSystem, Content: synthSystemPrompt},
		{Role: engine.RoleUser, Content: sb.String()},
	}, nil
}

type contextPayload struct {
	Files   map[string]string `json:"files"`
	Omitted []string          `json:"omitted,omitempty"`
}

func contextJSON(pc *ProjectContext, maxTokens int) (string, error) {
	payload := contextPayload{Files: map[string]string{}}
	if pc != nil {
		remaining := maxTokens
		paths := pc.Paths()
		for i := len(paths) - 1; i >= 0; i-- {
			p := paths[i]
			content, _ := pc.Get(p)
			tokens := EstimateTokens(p) + EstimateTokens(content)
			if tokens > remaining {
				payload.Omitted = append(payload.Omitted, p)
				continue
			}
			payload.Files[p] = content
			remaining -= tokens
		}
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding project context: %w", err)
	}
	return string(b), nil
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
