package scaffold

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestComposeYAML(t *testing.T) {
	l := Plan(docWith("React frontend", "Express backend", "SQLite database"))
	out, err := l.ComposeYAML()
	if err != nil {
		t.Fatalf("ComposeYAML: %v", err)
	}

	if !strings.HasPrefix(string(out), "version: '3.8'\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	b := strings.Index(string(out), "backend:")
	f := strings.Index(string(out), "frontend:")
	d := strings.Index(string(out), "database:")
	if !(b >= 0 && b < f && f < d) {
		t.Errorf("services out of order:\n%s", out)
	}

	var parsed struct {
		Version  string `yaml:"version"`
		Services map[string]struct {
			Build       string   `yaml:"build"`
			Image       string   `yaml:"image"`
			Ports       []string `yaml:"ports"`
			Volumes     []string `yaml:"volumes"`
			Environment []string `yaml:"environment"`
			DependsOn   []string `yaml:"depends_on"`
			Command     string   `yaml:"command"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("compose output is not valid YAML: %v\n%s", err, out)
	}
	if parsed.Version != "3.8" {
		t.Errorf("version = %q", parsed.Version)
	}
	if got := parsed.Services["frontend"].DependsOn; len(got) != 1 || got[0] != "backend" {
		t.Errorf("frontend depends_on = %v", got)
	}
	if got := parsed.Services["backend"].Volumes; len(got) != 1 || got[0] != "./src/backend:/app/src/backend" {
		t.Errorf("backend volumes = %v", got)
	}
	if got := parsed.Services["database"].Command; got != "sqlite3 /data/tasks.db" {
		t.Errorf("database command = %q", got)
	}
	if got := parsed.Services["backend"].Build; got != "." {
		t.Errorf("backend build = %q", got)
	}
}

func TestDockerfileText(t *testing.T) {
	tests := []struct {
		tmpl DockerTemplate
		want []string
	}{
		{TemplateFullStack, []string{"AS production", "EXPOSE 5000 3000", "serve -s build"}},
		{TemplateBackend, []string{"FROM node:18-alpine", "EXPOSE 5000"}},
		{TemplateFrontend, []string{"EXPOSE 3000"}},
		{TemplateDefault, []string{"EXPOSE 3000"}},
		{"unknown", []string{"EXPOSE 3000"}},
	}
	for _, tt := range tests {
		got := Layout{Dockerfile: tt.tmpl}.DockerfileText()
		for _, w := range tt.want {
			if !strings.Contains(got, w) {
				t.Errorf("%s Dockerfile missing %q", tt.tmpl, w)
			}
		}
	}
}
