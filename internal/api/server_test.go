package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/blueprint/internal/jobs"
	"github.com/kalambet/blueprint/internal/router"
	"github.com/kalambet/blueprint/internal/storage"
)

const testToken = "test-token-12345"

func setupHandler(t *testing.T, token string) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewHandler(Deps{Store: store, Token: token, OutputDir: "/tmp/out"}), store
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error.Type
}

func TestHealth_NoAuth(t *testing.T) {
	h, _ := setupHandler(t, testToken)
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestAuth(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", testToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, authReq(http.MethodGet, "/documents", "", tt.token))
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && errorType(t, rr) != "authentication_error" {
				t.Error("wrong error type")
			}
		})
	}
}

func TestAuth_DisabledWithoutToken(t *testing.T) {
	h, _ := setupHandler(t, "")
	rr := serve(h, authReq(http.MethodGet, "/documents", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestExtract(t *testing.T) {
	h, _ := setupHandler(t, "")

	tests := []struct {
		name      string
		text      string
		wantFound bool
		wantDoc   bool
	}{
		{"fenced document", "Summary:\n```json\n" + todoDocJSON + "\n```", true, true},
		{"bare object without project_name", `Sure: {"question": "which db?"}`, true, false},
		{"no json", "Which database would you like?", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"text": tt.text})
			rr := serve(h, authReq(http.MethodPost, "/extract", string(body), ""))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
			}
			var resp ExtractResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Found != tt.wantFound || (resp.Document != nil) != tt.wantDoc {
				t.Errorf("found=%v doc=%v, want %v/%v", resp.Found, resp.Document != nil, tt.wantFound, tt.wantDoc)
			}
		})
	}
}

func TestExtract_InvalidBody(t *testing.T) {
	h, _ := setupHandler(t, "")
	rr := serve(h, authReq(http.MethodPost, "/extract", "not json", ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if errorType(t, rr) != "invalid_request_error" {
		t.Error("wrong error type")
	}
}

func TestPlan(t *testing.T) {
	h, _ := setupHandler(t, "")
	rr := serve(h, authReq(http.MethodPost, "/plan", `{"project_name":"API Only","localhost_implementation":{"components":["Flask backend"]}}`, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Layout struct {
			Container string   `json:"container"`
			Dirs      []string `json:"dirs"`
		} `json:"layout"`
		Dockerfile string `json:"dockerfile"`
		Compose    string `json:"compose"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Layout.Container != "single" || resp.Compose != "" {
		t.Errorf("container = %q, compose = %q", resp.Layout.Container, resp.Compose)
	}
	if !strings.Contains(resp.Dockerfile, "FROM") {
		t.Errorf("dockerfile = %q", resp.Dockerfile)
	}
}

func TestRoute(t *testing.T) {
	h, _ := setupHandler(t, "")
	rr := serve(h, authReq(http.MethodPost, "/route", `{"task":"Create React component for task list"}`, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp RouteResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Path != router.FrontendComponent || resp.Area != "frontend" {
		t.Errorf("resp = %+v", resp)
	}

	rr = serve(h, authReq(http.MethodPost, "/route", `{}`, ""))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing task: status = %d, want 400", rr.Code)
	}
}

func TestDocuments_CreateGetList(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := serve(h, authReq(http.MethodPost, "/documents", todoDocJSON, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var created map[string]string
	json.NewDecoder(rr.Body).Decode(&created)
	if created["id"] == "" || created["slug"] != "todo_app" {
		t.Fatalf("created = %v", created)
	}

	rr = serve(h, authReq(http.MethodGet, "/documents/"+created["id"], "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var view struct {
		ID       string         `json:"id"`
		Document map[string]any `json:"document"`
	}
	json.NewDecoder(rr.Body).Decode(&view)
	if view.ID != created["id"] || view.Document["project_name"] != "Todo App" {
		t.Errorf("view = %+v", view)
	}

	rr = serve(h, authReq(http.MethodGet, "/documents?limit=5", "", testToken))
	var list []storage.Document
	json.NewDecoder(rr.Body).Decode(&list)
	if len(list) != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestDocuments_Validation(t *testing.T) {
	h, _ := setupHandler(t, "")

	rr := serve(h, authReq(http.MethodPost, "/documents", `{"description":"no name"}`, ""))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}

	rr = serve(h, authReq(http.MethodGet, "/documents/missing", "", ""))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if errorType(t, rr) != "not_found" {
		t.Error("wrong error type")
	}
}

func TestRuns_Enqueue(t *testing.T) {
	h, store := setupHandler(t, "")

	rr := serve(h, authReq(http.MethodPost, "/documents", todoDocJSON, ""))
	var created map[string]string
	json.NewDecoder(rr.Body).Decode(&created)

	rr = serve(h, authReq(http.MethodPost, "/runs", `{"document_id":"`+created["id"]+`"}`, ""))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var queued map[string]string
	json.NewDecoder(rr.Body).Decode(&queued)
	if queued["status"] != "queued" {
		t.Errorf("queued = %v", queued)
	}

	run, err := store.GetRun(queued["id"])
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.OutputDir != "/tmp/out" || run.Status != storage.RunPending {
		t.Errorf("run = %+v", run)
	}

	job, err := store.ClaimNextJob([]string{jobs.TypeGenerate})
	if err != nil || job == nil {
		t.Fatalf("no job queued: %v", err)
	}

	rr = serve(h, authReq(http.MethodGet, "/runs/"+run.ID, "", ""))
	if rr.Code != http.StatusOK {
		t.Errorf("get run status = %d", rr.Code)
	}
	rr = serve(h, authReq(http.MethodGet, "/runs", "", ""))
	var runs []storage.Run
	json.NewDecoder(rr.Body).Decode(&runs)
	if len(runs) != 1 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRuns_Errors(t *testing.T) {
	h, _ := setupHandler(t, "")

	tests := []struct {
		name   string
		method string
		url    string
		body   string
		want   int
	}{
		{"missing document id", http.MethodPost, "/runs", `{}`, http.StatusBadRequest},
		{"unknown document", http.MethodPost, "/runs", `{"document_id":"nope"}`, http.StatusNotFound},
		{"unknown run", http.MethodGet, "/runs/nope", "", http.StatusNotFound},
		{"unknown run files", http.MethodGet, "/runs/nope/files", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, authReq(tt.method, tt.url, tt.body, ""))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRunFiles_ContentOptIn(t *testing.T) {
	h, store := setupHandler(t, "")
	if err := store.CreateRun(storage.Run{ID: "r1", DocumentID: "d1", OutputDir: "."}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.RecordFile(storage.File{RunID: "r1", Task: "db", Path: router.DatabaseModel, Content: "module.exports = {};"}); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}

	var files []storage.File
	rr := serve(h, authReq(http.MethodGet, "/runs/r1/files", "", ""))
	json.NewDecoder(rr.Body).Decode(&files)
	if len(files) != 1 || files[0].Content != "" {
		t.Errorf("files without content = %+v", files)
	}

	rr = serve(h, authReq(http.MethodGet, "/runs/r1/files?content=true", "", ""))
	files = nil
	json.NewDecoder(rr.Body).Decode(&files)
	if len(files) != 1 || files[0].Content != "module.exports = {};" {
		t.Errorf("files with content = %+v", files)
	}
}

func TestRunTree(t *testing.T) {
	h, store := setupHandler(t, "")
	root := filepath.Join(t.TempDir(), "todo_app")
	for _, f := range []string{"README.md", "src/backend/server.js", "src/frontend/App.jsx"} {
		p := filepath.Join(root, filepath.FromSlash(f))
		os.MkdirAll(filepath.Dir(p), 0o755)
		os.WriteFile(p, []byte("x"), 0o644)
	}
	store.CreateRun(storage.Run{ID: "r1", DocumentID: "d1", OutputDir: "."})
	store.StartRun("r1", root)
	store.CreateRun(storage.Run{ID: "pending", DocumentID: "d1", OutputDir: "."})

	var tree struct {
		Root  string   `json:"root"`
		Files []string `json:"files"`
	}
	rr := serve(h, authReq(http.MethodGet, "/runs/r1/tree?pattern=src/**/*.js", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	json.NewDecoder(rr.Body).Decode(&tree)
	if len(tree.Files) != 1 || tree.Files[0] != "src/backend/server.js" {
		t.Errorf("files = %v", tree.Files)
	}

	rr = serve(h, authReq(http.MethodGet, "/runs/r1/tree", "", ""))
	tree.Files = nil
	json.NewDecoder(rr.Body).Decode(&tree)
	if len(tree.Files) != 3 {
		t.Errorf("all files = %v", tree.Files)
	}

	if rr := serve(h, authReq(http.MethodGet, "/runs/r1/tree?pattern=../*", "", "")); rr.Code != http.StatusBadRequest {
		t.Errorf("escaping pattern status = %d, want 400", rr.Code)
	}
	if rr := serve(h, authReq(http.MethodGet, "/runs/pending/tree", "", "")); rr.Code != http.StatusConflict {
		t.Errorf("pending run status = %d, want 409", rr.Code)
	}
	if rr := serve(h, authReq(http.MethodGet, "/runs/missing/tree", "", "")); rr.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rr.Code)
	}
}

func TestSessions(t *testing.T) {
	h, store := setupHandler(t, "")
	if err := store.CreateSession(storage.Session{ID: "s1", Request: "todo app"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	store.AppendEntry("s1", "user", "todo app")
	store.AppendEntry("s1", "assistant", "Which stack?")

	rr := serve(h, authReq(http.MethodGet, "/sessions/s1", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var view SessionView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != "s1" || len(view.Transcript) != 2 || view.Transcript[1].Text != "Which stack?" {
		t.Errorf("view = %+v", view)
	}

	rr = serve(h, authReq(http.MethodGet, "/sessions", "", ""))
	var list []storage.Session
	json.NewDecoder(rr.Body).Decode(&list)
	if len(list) != 1 {
		t.Errorf("list = %+v", list)
	}

	rr = serve(h, authReq(http.MethodGet, "/sessions/missing", "", ""))
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d", rr.Code)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=500", 100},
		{"limit=-1", 20},
		{"limit=abc", 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 20, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
