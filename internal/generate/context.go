package generate

import (
	"fmt"
	"strings"
)

// DefaultGrepLimit caps Grep results when the caller passes no limit.
const DefaultGrepLimit = 10

// ProjectContext holds the last written content of every generated file,
// keyed by project-relative path. It is owned by a single pipeline run.
type ProjectContext struct {
	order []string
	files map[string]string
}

// NewProjectContext returns an empty context.
func NewProjectContext() *ProjectContext {
	return &ProjectContext{files: make(map[string]string)}
}

// Set records content for path. Rewriting a path moves it to the end of the
// write order.
func (c *ProjectContext) Set(path, content string) {
	if _, ok := c.files[path]; ok {
		for i, p := range c.order {
			if p == path {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.order = append(c.order, path)
	c.files[path] = content
}

// Get returns the content last written to path.
func (c *ProjectContext) Get(path string) (string, bool) {
	s, ok := c.files[path]
	return s, ok
}

// Paths returns paths from oldest to most recently written.
func (c *ProjectContext) Paths() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of files.
func (c *ProjectContext) Len() int { return len(c.order) }

// Match is one Grep hit.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (m Match) String() string {
	return fmt.Sprintf("%s:%d: %s", m.Path, m.Line, m.Text)
}

// Grep returns lines containing query, case-insensitively, in write order.
// At most limit matches are returned; limit <= 0 means DefaultGrepLimit.
func (c *ProjectContext) Grep(query string, limit int) []Match {
	if limit <= 0 {
		limit = DefaultGrepLimit
	}
	q := strings.ToLower(query)
	if q == "" {
		return nil
	}

	var out []Match
	for _, path := range c.order {
		content := c.files[path]
		if !strings.Contains(strings.ToLower(content), q) {
			continue
		}
		for i, line := range strings.Split(content, "\n") {
			if strings.Contains(strings.ToLower(line), q) {
				out = append(out, Match{Path: path, Line: i + 1, Text: strings.TrimSpace(line)})
				if len(out) == limit {
					return out
				}
			}
		}
	}
	return out
}
