package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func tagsJSON(names ...string) []byte {
	type entry struct {
		Name string `json:"name"`
	}
	type resp struct {
		Models []entry `json:"models"`
	}
	r := resp{}
	for _, n := range names {
		r.Models = append(r.Models, entry{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestOllamaEngine_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "hello from ollama"},
		})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	result, err := e.Chat(context.Background(), "llama3.1", []Message{
		{Role: "user", Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result != "hello from ollama" {
		t.Errorf("got %q, want %q", result, "hello from ollama")
	}
}

func TestOllamaEngine_Chat_NestedSchema(t *testing.T) {
	var body struct {
		Format  map[string]any `json:"format"`
		Options map[string]any `json:"options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": `{"project_name":"x"}`},
		})
	}))
	defer srv.Close()

	schema := &Schema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"core_requirements": {Type: "array", Items: &SchemaProperty{Type: "string"}},
			"localhost_implementation": {Type: "object", Properties: map[string]SchemaProperty{
				"architecture": {Type: "string"},
			}},
		},
		Required: []string{"project_name"},
	}

	e := NewOllamaEngine(srv.URL)
	if _, err := e.Chat(context.Background(), "llama3.1", []Message{{Role: "user", Content: "hi"}}, schema); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	props, _ := body.Format["properties"].(map[string]any)
	reqs, _ := props["core_requirements"].(map[string]any)
	items, _ := reqs["items"].(map[string]any)
	if items["type"] != "string" {
		t.Errorf("items not forwarded: %v", reqs)
	}
	if body.Options["temperature"] != float64(0) {
		t.Errorf("options = %v, want temperature 0", body.Options)
	}
	impl, _ := props["localhost_implementation"].(map[string]any)
	nested, _ := impl["properties"].(map[string]any)
	if _, ok := nested["architecture"]; !ok {
		t.Errorf("nested properties not forwarded: %v", impl)
	}
}

func TestOllamaEngine_IsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llama3.1:latest"))
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	if !e.IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
}

func TestOllamaEngine_IsRunning_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	e := NewOllamaEngine(srv.URL)
	if e.IsRunning(context.Background()) {
		t.Error("IsRunning() = true, want false")
	}
}

func TestOllamaEngine_HasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llama3.1:latest", "qwen2.5-coder:latest"))
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	if !e.HasModel(context.Background(), "llama3.1") {
		t.Error("HasModel(llama3.1) = false, want true")
	}
	if e.HasModel(context.Background(), "mistral") {
		t.Error("HasModel(mistral) = true, want false")
	}
}

func TestOllamaEngine_PullModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"status": "downloading", "total": 1000, "completed": 500})
		enc.Encode(map[string]any{"status": "downloading", "total": 1000, "completed": 1000})
		enc.Encode(map[string]any{"status": "success"})
	}))
	defer srv.Close()

	e := NewOllamaEngine(srv.URL)
	var progressCount int
	err := e.PullModel(context.Background(), "llama3.1", func(p PullProgress) {
		progressCount++
	})
	if err != nil {
		t.Fatalf("PullModel: %v", err)
	}
	if progressCount != 3 {
		t.Errorf("received %d progress updates, want 3", progressCount)
	}
}
