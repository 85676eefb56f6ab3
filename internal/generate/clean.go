package generate

import (
	"regexp"
	"strings"
)

var (
	fenceLine = regexp.MustCompile("^```[A-Za-z0-9_+-]*$")
	fileExt   = regexp.MustCompile(`^[\w.-]*\w\.[A-Za-z0-9]{1,6}$`)
)

// Clean strips code-fence marker lines from synthesized text and drops
// leading comment lines that only name a file path, such as
// "// src/backend/server.js" or "# File: app/main.py". A bare name counts
// only with a "File:" label, as in "// File: server.js".
func Clean(code string) string {
	var kept []string
	for _, line := range strings.Split(code, "\n") {
		if fenceLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}

	for len(kept) > 0 {
		trimmed := strings.TrimSpace(kept[0])
		if trimmed == "" || isPathComment(trimmed) {
			kept = kept[1:]
			continue
		}
		break
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isPathComment(line string) bool {
	var body string
	switch {
	case strings.HasPrefix(line, "//"):
		body = line[2:]
	case strings.HasPrefix(line, "# "):
		body = line[2:]
	case strings.HasPrefix(line, "/*") && strings.HasSuffix(line, "*/"):
		body = strings.TrimSuffix(line[2:], "*/")
	default:
		return false
	}
	body = strings.TrimSpace(body)
	labeled := len(body) > 5 && strings.EqualFold(body[:5], "file:")
	if labeled {
		body = strings.TrimSpace(body[5:])
	}
	if body == "" || strings.ContainsAny(body, " \t") {
		return false
	}
	if strings.Contains(body, "/") {
		return true
	}
	return labeled && fileExt.MatchString(body)
}
