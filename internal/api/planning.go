package api

import (
	"encoding/json"
	"net/http"

	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/router"
	"github.com/kalambet/blueprint/internal/scaffold"
)

type extractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse reports what was found in a block of text. Document is set
// only when the JSON is a requirements document.
type ExtractResponse struct {
	Found    bool                   `json:"found"`
	Raw      json.RawMessage        `json:"raw,omitempty"`
	Document *requirements.Document `json:"document,omitempty"`
}

func extract(text string) ExtractResponse {
	e := requirements.Extract(text)
	resp := ExtractResponse{Found: e.Found(), Raw: e.Value}
	if doc, ok := requirements.Accept(e); ok {
		resp.Document = &doc
	}
	return resp
}

func handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, extract(req.Text))
}

// PlanResponse is a planned layout with its rendered container artifacts.
type PlanResponse struct {
	Layout     scaffold.Layout   `json:"layout"`
	Dockerfile string            `json:"dockerfile,omitempty"`
	Compose    string            `json:"compose,omitempty"`
	Tasks      []router.FileTask `json:"tasks"`
}

func plan(doc requirements.Document) (PlanResponse, error) {
	l := scaffold.Plan(doc)
	compose, err := l.ComposeYAML()
	if err != nil {
		return PlanResponse{}, err
	}
	tasks := router.Tasks(doc)
	if tasks == nil {
		tasks = []router.FileTask{}
	}
	return PlanResponse{
		Layout:     l,
		Dockerfile: l.DockerfileText(),
		Compose:    string(compose),
		Tasks:      tasks,
	}, nil
}

func handlePlan(w http.ResponseWriter, r *http.Request) {
	var doc requirements.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	resp, err := plan(doc)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "rendering compose file: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type routeRequest struct {
	Task     string                `json:"task"`
	Document requirements.Document `json:"document"`
}

// RouteResponse is the file chosen for one task.
type RouteResponse struct {
	Task string `json:"task"`
	Path string `json:"path"`
	Area string `json:"area"`
}

func handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Task == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "task is required")
		return
	}
	path, area := router.Explain(req.Task, req.Document)
	writeJSON(w, http.StatusOK, RouteResponse{Task: req.Task, Path: path, Area: area})
}
