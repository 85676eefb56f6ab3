// Package router maps natural-language implementation tasks to the single
// project file each one should produce.
package router

import (
	"strings"

	"github.com/kalambet/blueprint/internal/requirements"
)

// Target files, relative to the project root.
const (
	FrontendEntry     = "src/frontend/App.jsx"
	FrontendComponent = "src/frontend/components/TaskList.jsx"
	FrontendPage      = "src/frontend/pages/Home.jsx"
	BackendEntry      = "src/backend/server.js"
	BackendRoutes     = "src/backend/routes/tasks.js"
	BackendModel      = "src/backend/models/Task.js"
	DatabaseModel     = "src/backend/models/database.js"
)

// Refinement narrows an area to a more specific file.
type Refinement struct {
	Keywords []string
	Path     string
}

// Rule is one area of the project selected by keyword. Refinements are tried
// in order; Default applies when none matches.
type Rule struct {
	Area        string
	Keywords    []string
	Refinements []Refinement
	Default     string
}

// Rules is evaluated top to bottom, first match wins. Matching is substring
// over the lowercased task, so "ui" also matches words such as "build".
var Rules = []Rule{
	{
		Area:     "frontend",
		Keywords: []string{"react", "frontend", "ui"},
		Refinements: []Refinement{
			{Keywords: []string{"component"}, Path: FrontendComponent},
			{Keywords: []string{"page"}, Path: FrontendPage},
		},
		Default: FrontendEntry,
	},
	{
		Area:     "backend",
		Keywords: []string{"backend", "api", "server"},
		Refinements: []Refinement{
			{Keywords: []string{"route", "endpoint"}, Path: BackendRoutes},
			{Keywords: []string{"model"}, Path: BackendModel},
		},
		Default: BackendEntry,
	},
	{
		Area:     "database",
		Keywords: []string{"database", "sqlite"},
		Default:  DatabaseModel,
	},
}

// FileTask pairs one implementation-plan entry with its target file.
type FileTask struct {
	Task    string `json:"task"`
	Path    string `json:"path"`
	Purpose string `json:"purpose"`
}

// Route returns the target path for task. It is total and deterministic:
// when no rule matches, the project entry point is chosen from the
// document's components.
func Route(task string, doc requirements.Document) string {
	path, _ := Explain(task, doc)
	return path
}

// Explain is Route plus the name of the area that decided it ("fallback"
// when no keyword matched).
func Explain(task string, doc requirements.Document) (path, area string) {
	lower := strings.ToLower(task)
	for _, r := range Rules {
		if !containsAny(lower, r.Keywords) {
			continue
		}
		for _, ref := range r.Refinements {
			if containsAny(lower, ref.Keywords) {
				return ref.Path, r.Area
			}
		}
		return r.Default, r.Area
	}
	return fallback(doc), "fallback"
}

// Tasks returns one FileTask per implementation-plan entry, in plan order.
func Tasks(doc requirements.Document) []FileTask {
	out := make([]FileTask, 0, len(doc.ImplementationPlan))
	for _, task := range doc.ImplementationPlan {
		out = append(out, FileTask{
			Task:    task,
			Path:    Route(task, doc),
			Purpose: "Implement " + task,
		})
	}
	return out
}

func fallback(doc requirements.Document) string {
	for _, c := range doc.Components() {
		if strings.Contains(strings.ToLower(c), "react") {
			return FrontendEntry
		}
	}
	return BackendEntry
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
