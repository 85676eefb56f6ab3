// Package scaffold plans and creates the directory skeleton, boilerplate
// files and container artifacts for a requirements document.
package scaffold

import (
	"strings"

	"github.com/kalambet/blueprint/internal/requirements"
)

// Container describes how the project is containerized. A Dockerfile is
// always written, so every layout is at least ContainerSingle.
type Container string

const (
	ContainerSingle  Container = "single"
	ContainerCompose Container = "compose"
)

// DockerTemplate names one of the fixed Dockerfile templates.
type DockerTemplate string

const (
	TemplateFullStack DockerTemplate = "fullstack"
	TemplateBackend   DockerTemplate = "backend"
	TemplateFrontend  DockerTemplate = "frontend"
	TemplateDefault   DockerTemplate = "default"
)

// BaseDirs are created for every project, relative to the project root.
var BaseDirs = []string{".", "src", "tests", "docs", "config"}

// DirRule adds Dirs when a component mentions Keyword.
type DirRule struct {
	Keyword string
	Dirs    []string
}

// DirRules are applied to every component independently; one component may
// match several rules.
var DirRules = []DirRule{
	{Keyword: "frontend", Dirs: []string{"src/frontend", "src/frontend/components", "src/frontend/pages", "src/frontend/utils"}},
	{Keyword: "backend", Dirs: []string{"src/backend", "src/backend/routes", "src/backend/models", "src/backend/controllers"}},
}

// Flags records which roles the components mention.
type Flags struct {
	Frontend bool `json:"frontend"`
	Backend  bool `json:"backend"`
	Database bool `json:"database"`
}

// FlagRule sets a role flag when any component mentions one of Keywords.
type FlagRule struct {
	Role     string
	Keywords []string
}

// FlagRules drive the containerization decision.
var FlagRules = []FlagRule{
	{Role: "frontend", Keywords: []string{"react", "frontend"}},
	{Role: "backend", Keywords: []string{"node", "express", "backend"}},
	{Role: "database", Keywords: []string{"sqlite", "database"}},
}

// Service is one docker-compose service.
type Service struct {
	Name        string   `json:"name"`
	Build       string   `json:"build,omitempty"`
	Image       string   `json:"image,omitempty"`
	Ports       []string `json:"ports,omitempty"`
	Volumes     []string `json:"volumes,omitempty"`
	Environment []string `json:"environment,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Command     string   `json:"command,omitempty"`
}

// Layout is the planned project skeleton. Dirs are relative to Root, which
// is the project directory name.
type Layout struct {
	Root       string         `json:"root"`
	Dirs       []string       `json:"dirs"`
	Flags      Flags          `json:"flags"`
	Dockerfile DockerTemplate `json:"dockerfile"`
	Container  Container      `json:"container"`
	Services   []Service      `json:"services,omitempty"`
}

// Plan derives the layout for doc. It is pure: the same document always
// yields the same layout.
func Plan(doc requirements.Document) Layout {
	components := doc.Components()

	l := Layout{
		Root:  doc.Slug(),
		Dirs:  planDirs(components),
		Flags: detectFlags(components),
	}
	l.Dockerfile = chooseTemplate(l.Flags)
	l.Container = ContainerSingle
	if (l.Flags.Frontend && l.Flags.Backend) || l.Flags.Database {
		l.Container = ContainerCompose
		l.Services = composeServices(l.Flags)
	}
	return l
}

func planDirs(components []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, d := range BaseDirs {
		add(d)
	}
	for _, c := range components {
		lower := strings.ToLower(c)
		for _, r := range DirRules {
			if strings.Contains(lower, r.Keyword) {
				for _, d := range r.Dirs {
					add(d)
				}
			}
		}
	}
	return dirs
}

func detectFlags(components []string) Flags {
	roles := make(map[string]bool)
	for _, c := range components {
		lower := strings.ToLower(c)
		for _, r := range FlagRules {
			for _, kw := range r.Keywords {
				if strings.Contains(lower, kw) {
					roles[r.Role] = true
				}
			}
		}
	}
	return Flags{
		Frontend: roles["frontend"],
		Backend:  roles["backend"],
		Database: roles["database"],
	}
}

func chooseTemplate(f Flags) DockerTemplate {
	switch {
	case f.Frontend && f.Backend:
		return TemplateFullStack
	case f.Backend:
		return TemplateBackend
	case f.Frontend:
		return TemplateFrontend
	default:
		return TemplateDefault
	}
}

func composeServices(f Flags) []Service {
	var svcs []Service
	if f.Backend {
		svcs = append(svcs, Service{
			Name:        "backend",
			Build:       ".",
			Ports:       []string{"5000:5000"},
			Volumes:     []string{"./src/backend:/app/src/backend"},
			Environment: []string{"NODE_ENV=development"},
		})
	}
	if f.Frontend {
		s := Service{
			Name:    "frontend",
			Build:   ".",
			Ports:   []string{"3000:3000"},
			Volumes: []string{"./src/frontend:/app/src/frontend"},
		}
		if f.Backend {
			s.DependsOn = []string{"backend"}
		}
		svcs = append(svcs, s)
	}
	if f.Database {
		svcs = append(svcs, Service{
			Name:    "database",
			Image:   "sqlite3:latest",
			Volumes: []string{"./data:/data"},
			Command: "sqlite3 /data/tasks.db",
		})
	}
	return svcs
}
