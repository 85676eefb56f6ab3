package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/kalambet/blueprint/internal/engine"
	"github.com/kalambet/blueprint/internal/requirements"
)

type captureGen struct {
	model    string
	messages []engine.Message
	reply    string
}

func (g *captureGen) Chat(_ context.Context, model string, msgs []engine.Message, _ *engine.Schema) (string, error) {
	g.model = model
	g.messages = msgs
	return g.reply, nil
}

func TestModelSynthesizer(t *testing.T) {
	gen := &captureGen{reply: "const x = 1;"}
	s := NewModelSynthesizer(gen, "qwen2.5-coder", 0)

	pc := NewProjectContext()
	pc.Set("src/backend/server.js", "app.listen(5000)")
	out, err := s.Synthesize(context.Background(), Request{
		Path:     "src/backend/routes/tasks.js",
		Task:     "Add backend API route for tasks",
		Purpose:  "Implement Add backend API route for tasks",
		Document: requirements.Document{ProjectName: "Todo App"},
		Plan:     []string{"Start the API server", "Add backend API route for tasks"},
		Context:  pc,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out != "const x = 1;" || gen.model != "qwen2.5-coder" {
		t.Errorf("out = %q model = %q", out, gen.model)
	}

	user := gen.messages[1].Content
	for _, want := range []string{
		"File: src/backend/routes/tasks.js",
		`"project_name": "Todo App"`,
		"2. Add backend API route for tasks",
		"Current task: Add backend API route for tasks",
		"File purpose: Implement Add backend API route for tasks",
		"app.listen(5000)",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestBuildPrompt_ContextBudget(t *testing.T) {
	pc := NewProjectContext()
	pc.Set("old.js", strings.Repeat("o", 400))
	pc.Set("new.js", strings.Repeat("n", 400))

	msgs, err := BuildPrompt(Request{Path: "x.js", Context: pc}, 120)
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	user := msgs[1].Content
	if !strings.Contains(user, strings.Repeat("n", 400)) {
		t.Error("newest file should be included in full")
	}
	if strings.Contains(user, strings.Repeat("o", 400)) {
		t.Error("oldest file should be omitted when over budget")
	}
	if !strings.Contains(user, `"omitted": [`) || !strings.Contains(user, `"old.js"`) {
		t.Errorf("omitted file not listed:\n%s", user)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"hello world", 3},
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.input); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
