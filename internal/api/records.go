package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/blueprint/internal/jobs"
	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/scaffold"
	"github.com/kalambet/blueprint/internal/storage"
)

// DocumentView is a stored document with its body decoded.
type DocumentView struct {
	storage.Document
	Body json.RawMessage `json:"document"`
}

func handleCreateDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc requirements.Document
		if !decodeBody(w, r, &doc) {
			return
		}
		if doc.ProjectName == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "project_name is required")
			return
		}

		stored, err := SaveDocument(deps.Store, doc, "")
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": stored.ID, "slug": stored.Slug})
	}
}

// SaveDocument stores doc under a new ID.
func SaveDocument(store *storage.Store, doc requirements.Document, sessionID string) (storage.Document, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return storage.Document{}, err
	}
	stored := storage.Document{
		ID:          uuid.New().String(),
		ProjectName: doc.ProjectName,
		Slug:        doc.Slug(),
		BodyJSON:    string(body),
		SessionID:   sessionID,
	}
	if err := store.SaveDocument(stored); err != nil {
		return storage.Document{}, err
	}
	return stored, nil
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := deps.Store.ListDocuments(parseIntParam(r, "limit", 20, 100))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}
		if docs == nil {
			docs = []storage.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleGetDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := deps.Store.GetDocument(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, DocumentView{Document: d, Body: json.RawMessage(d.BodyJSON)})
	}
}

type createRunRequest struct {
	DocumentID string `json:"document_id"`
	OutputDir  string `json:"output_dir"`
}

func handleCreateRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRunRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.DocumentID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "document_id is required")
			return
		}
		if _, err := deps.Store.GetDocument(req.DocumentID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		outputDir := req.OutputDir
		if outputDir == "" {
			outputDir = deps.OutputDir
		}
		run, err := jobs.Submit(deps.Store, req.DocumentID, outputDir)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to queue run: %v", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID, "status": "queued"})
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := deps.Store.ListRuns(parseIntParam(r, "limit", 20, 100))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}
		if runs == nil {
			runs = []storage.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := deps.Store.GetRun(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// handleListRunFiles omits file contents unless ?content=true.
func handleListRunFiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetRun(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		files, err := deps.Store.ListRunFiles(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list files: %v", err)
			return
		}
		withContent, _ := strconv.ParseBool(r.URL.Query().Get("content"))
		if !withContent {
			for i := range files {
				files[i].Content = ""
			}
		}
		if files == nil {
			files = []storage.File{}
		}
		writeJSON(w, http.StatusOK, files)
	}
}

// handleRunTree lists the files currently on disk under the run's project
// root. ?pattern= accepts "**" globs.
func handleRunTree(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := deps.Store.GetRun(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}
		if run.Root == "" {
			httpError(w, http.StatusConflict, "invalid_request_error", "run %s has not started", run.ID)
			return
		}

		files, err := scaffold.Inventory(run.Root, r.URL.Query().Get("pattern"))
		if errors.Is(err, fs.ErrNotExist) {
			httpError(w, http.StatusNotFound, "not_found", "project root %s does not exist", run.Root)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if files == nil {
			files = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"root": run.Root, "files": files})
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := deps.Store.ListSessions(parseIntParam(r, "limit", 20, 100))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sessions: %v", err)
			return
		}
		if sessions == nil {
			sessions = []storage.Session{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

// SessionView is a session with its transcript.
type SessionView struct {
	storage.Session
	Transcript []storage.Entry `json:"transcript"`
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := deps.Store.GetSession(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get session: %v", err)
			return
		}
		entries, err := deps.Store.Transcript(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load transcript: %v", err)
			return
		}
		if entries == nil {
			entries = []storage.Entry{}
		}
		writeJSON(w, http.StatusOK, SessionView{Session: sess, Transcript: entries})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
