package requirements

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// Extraction is the result of scanning generator output for a document.
// Value holds the parsed JSON when one of the strategies succeeded; Text is
// always the original input.
type Extraction struct {
	Value json.RawMessage
	Text  string
}

// Found reports whether any structured value was recovered.
func (e Extraction) Found() bool { return e.Value != nil }

// Extract recovers a structured value from text. It tries, in order, a fenced
// block tagged json, then the span from the first '{' to the last '}'. If
// neither parses, the text is returned unchanged. It never fails.
func Extract(text string) Extraction {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if json.Valid([]byte(m[1])) {
			return Extraction{Value: json.RawMessage(m[1]), Text: text}
		}
		slog.Debug("fenced json block did not parse")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		span := text[start : end+1]
		if json.Valid([]byte(span)) {
			return Extraction{Value: json.RawMessage(span), Text: text}
		}
		slog.Debug("brace span did not parse")
	}

	return Extraction{Text: text}
}

// Accept is the acceptance gate: the extracted value must be an object with
// a project_name key. Any such object is accepted; fields that cannot be
// decoded are left empty.
func Accept(e Extraction) (Document, bool) {
	if !e.Found() {
		return Document{}, false
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(e.Value, &keys); err != nil {
		return Document{}, false
	}
	name, ok := keys["project_name"]
	if !ok {
		return Document{}, false
	}

	var doc Document
	if err := json.Unmarshal(e.Value, &doc); err != nil {
		slog.Warn("candidate document decoded partially", "error", err)
		doc = Document{ProjectName: flatten(name)}
		for key, field := range documentFields(&doc) {
			if raw, ok := keys[key]; ok {
				if err := json.Unmarshal(raw, field); err != nil {
					slog.Debug("dropping undecodable document field", "field", key, "error", err)
				}
			}
		}
	}
	return doc, true
}

func documentFields(d *Document) map[string]any {
	return map[string]any{
		"core_requirements":        &d.CoreRequirements,
		"external_dependencies":    &d.ExternalDependencies,
		"localhost_implementation": &d.LocalhostImplementation,
		"mock_strategies":          &d.MockStrategies,
		"implementation_plan":      &d.ImplementationPlan,
		"assumptions":              &d.Assumptions,
	}
}
