package scaffold

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kalambet/blueprint/internal/requirements"
)

// FileFailure records one boilerplate file that could not be written.
type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report summarizes what Apply created. Paths are relative to Root.
type Report struct {
	Root     string        `json:"root"`
	Dirs     []string      `json:"dirs"`
	Files    []string      `json:"files"`
	Failures []FileFailure `json:"failures,omitempty"`
}

// OK reports whether every file was written.
func (r Report) OK() bool { return len(r.Failures) == 0 }

type boilerplate struct {
	path    string
	content string
}

// Apply creates the layout under baseDir. Directory failures abort with an
// error; file failures are recorded in the report and do not stop the
// remaining files. Running it twice on the same layout is safe.
func Apply(baseDir string, doc requirements.Document, l Layout) (Report, error) {
	root := filepath.Join(baseDir, l.Root)
	rep := Report{Root: root}

	for _, d := range l.Dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return rep, fmt.Errorf("creating directory %s: %w", filepath.Join(root, d), err)
		}
		rep.Dirs = append(rep.Dirs, d)
	}

	files, err := boilerplateFiles(doc, l)
	if err != nil {
		return rep, err
	}
	for _, f := range files {
		if err := writeFile(root, f.path, f.content); err != nil {
			slog.Warn("writing scaffold file", "path", f.path, "error", err)
			rep.Failures = append(rep.Failures, FileFailure{Path: f.path, Error: err.Error()})
			continue
		}
		rep.Files = append(rep.Files, f.path)
	}

	return rep, nil
}

func writeFile(root, rel, content string) error {
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0o644)
}

func boilerplateFiles(doc requirements.Document, l Layout) ([]boilerplate, error) {
	files := []boilerplate{
		{"README.md", readme(doc)},
		{"requirements.txt", "# Python dependencies\n"},
		{"package.json", packageJSON},
		{".gitignore", "node_modules/\n__pycache__/\n*.pyc\n.env\n"},
		{"src/__init__.py", ""},
		{"tests/__init__.py", ""},
		{"Dockerfile", l.DockerfileText()},
	}

	compose, err := l.ComposeYAML()
	if err != nil {
		return nil, err
	}
	if compose != nil {
		files = append(files, boilerplate{"docker-compose.yml", string(compose)})
	}
	return files, nil
}

const packageJSON = `{"name": "generated-project", "version": "1.0.0", "description": "", "main": "index.js", "scripts": {"start": "node index.js"}, "dependencies": {}}`

func readme(doc requirements.Document) string {
	name := doc.ProjectName
	if name == "" {
		name = "Generated Project"
	}
	desc := doc.Description
	if desc == "" {
		desc = "Auto-generated project"
	}
	image := doc.ImageName()

	return fmt.Sprintf(`# %s

%s

## Setup

### Prerequisites
- Docker
- Docker Compose (if using multiple services)

### Quick Start with Docker

`+"```bash"+`
docker build -t %s .
docker run -p 3000:3000 %s
`+"```"+`

### Development

`+"```bash"+`
npm install
npm start
`+"```"+`
`, name, desc, image, image)
}
