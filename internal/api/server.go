// Package api exposes blueprint over HTTP and MCP.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/blueprint/internal/jobs"
	"github.com/kalambet/blueprint/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds what the HTTP handlers need. An empty Token disables auth.
type Deps struct {
	Store     *storage.Store
	Token     string
	OutputDir string // default output directory for runs
	Events    *jobs.Hub
}

// NewHandler returns the HTTP API. /health is always public.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(requireToken(deps.Token))

		r.Post("/extract", handleExtract)
		r.Post("/plan", handlePlan)
		r.Post("/route", handleRoute)

		r.Post("/documents", handleCreateDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))

		r.Post("/runs", handleCreateRun(deps))
		r.Get("/runs", handleListRuns(deps))
		r.Get("/runs/{id}", handleGetRun(deps))
		r.Get("/runs/{id}/files", handleListRunFiles(deps))
		r.Get("/runs/{id}/tree", handleRunTree(deps))
		r.Get("/runs/{id}/events", handleRunEvents(deps))

		r.Get("/sessions", handleListSessions(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
	})

	return r
}

// requireToken rejects requests without "Authorization: Bearer <token>".
// An empty token lets every request through.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
