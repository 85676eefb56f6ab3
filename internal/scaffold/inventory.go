package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yargevad/filepathx"
)

// ErrPatternEscapesRoot is returned for patterns that reach outside the root.
var ErrPatternEscapesRoot = errors.New("pattern must stay inside the project root")

// Inventory lists files under root matching pattern, which may use "**" to
// cross directory levels. Results are slash-separated, relative to root and
// sorted. An empty pattern lists every file. Absolute patterns and patterns
// with ".." elements are rejected.
func Inventory(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**"
	}
	if escapesRoot(pattern) {
		return nil, fmt.Errorf("%q: %w", pattern, ErrPatternEscapesRoot)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	matches, err := filepathx.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var out []string
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil || st.IsDir() {
			continue
		}
		rel, err := filepath.Rel(root, m)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out, nil
}

func escapesRoot(pattern string) bool {
	if filepath.IsAbs(pattern) || strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, `\`) {
		return true
	}
	for _, elem := range strings.FieldsFunc(pattern, func(r rune) bool { return r == '/' || r == '\\' }) {
		if elem == ".." {
			return true
		}
	}
	return false
}
