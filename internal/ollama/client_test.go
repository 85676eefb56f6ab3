package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func tagsJSON(names ...string) []byte {
	var r tagsResponse
	for _, n := range names {
		r.Models = append(r.Models, struct {
			Name string `json:"name"`
		}{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestIsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llama3.1:latest"))
	}))
	defer srv.Close()

	if !New(srv.URL).IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}

	srv.Close()
	if New(srv.URL).IsRunning(context.Background()) {
		t.Error("IsRunning() = true for a closed server")
	}
}

func TestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"version":"0.5.7"}`)
	}))
	defer srv.Close()

	v, err := New(srv.URL + "/").Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "0.5.7" {
		t.Errorf("version = %q", v)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llama3.1:latest", "qwen2.5-coder:latest"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[1] != "qwen2.5-coder:latest" {
		t.Errorf("models = %v", models)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"llama3.1", true},
		{"llama3.1:latest", true},
		{"qwen2.5-coder", true},
		{"llama3", false},
		{"mistral", false},
	}
	for _, tt := range tests {
		if got := c.HasModel(context.Background(), tt.name); got != tt.want {
			t.Errorf("HasModel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestChat(t *testing.T) {
	var captured ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(chatResponse{
			Message: Message{Role: "assistant", Content: "Which database do you prefer?"},
		})
	}))
	defer srv.Close()

	zero := 0.0
	result, err := New(srv.URL).Chat(context.Background(), ChatRequest{
		Model:    "llama3.1",
		Messages: []Message{{Role: "user", Content: "Describe a todo app"}},
		Stream:   true,
		Format:   map[string]any{"type": "object"},
		Options:  &Options{Temperature: &zero, NumCtx: 8192},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result != "Which database do you prefer?" {
		t.Errorf("result = %q", result)
	}

	if captured.Stream {
		t.Error("chat requests must not stream")
	}
	if captured.Options == nil || captured.Options.Temperature == nil || *captured.Options.Temperature != 0 {
		t.Errorf("options = %+v, want temperature 0", captured.Options)
	}
	if captured.Options.NumCtx != 8192 {
		t.Errorf("num_ctx = %d", captured.Options.NumCtx)
	}
	if f, ok := captured.Format.(map[string]any); !ok || f["type"] != "object" {
		t.Errorf("format = %#v", captured.Format)
	}
}

func TestChat_ErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model 'missing' not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), ChatRequest{Model: "missing"})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "not found") || !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want status and body", err)
	}
}

func TestPullModel_Progress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		var req pullRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "qwen2.5-coder" || !req.Stream {
			t.Errorf("pull request = %+v", req)
		}

		enc := json.NewEncoder(w)
		enc.Encode(PullProgress{Status: "downloading", Total: 1000, Completed: 500})
		enc.Encode(PullProgress{Status: "downloading", Total: 1000, Completed: 1000})
		enc.Encode(PullProgress{Status: "success"})
	}))
	defer srv.Close()

	var seen []PullProgress
	err := New(srv.URL).PullModel(context.Background(), "qwen2.5-coder", func(p PullProgress) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("PullModel: %v", err)
	}
	if len(seen) != 3 || seen[2].Status != "success" {
		t.Errorf("progress = %+v", seen)
	}
}
