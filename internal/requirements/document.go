package requirements

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultSlug names the project directory when the document has no name.
const DefaultSlug = "generated_project"

// Document is the structured requirements document produced by elicitation.
// Once approved it is read-only input to scaffolding, routing and generation.
type Document struct {
	ProjectName             string         `json:"project_name" yaml:"project_name"`
	Description             string         `json:"description,omitempty" yaml:"description,omitempty"`
	CoreRequirements        Strings        `json:"core_requirements" yaml:"core_requirements"`
	ExternalDependencies    Strings        `json:"external_dependencies" yaml:"external_dependencies"`
	LocalhostImplementation Implementation `json:"localhost_implementation" yaml:"localhost_implementation"`
	MockStrategies          StringMap      `json:"mock_strategies" yaml:"mock_strategies"`
	ImplementationPlan      Strings        `json:"implementation_plan" yaml:"implementation_plan"`
	Assumptions             Strings        `json:"assumptions" yaml:"assumptions"`
}

// UnmarshalJSON decodes a document leniently: project_name and description
// may be any JSON value and are rendered as text.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var aux struct {
		plain
		ProjectName json.RawMessage `json:"project_name"`
		Description json.RawMessage `json:"description"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = Document(aux.plain)
	d.ProjectName = flatten(aux.ProjectName)
	d.Description = flatten(aux.Description)
	return nil
}

// Implementation describes how the project runs on a single machine.
type Implementation struct {
	Architecture string  `json:"architecture" yaml:"architecture"`
	Components   Strings `json:"components" yaml:"components"`
	DataFlow     string  `json:"data_flow" yaml:"data_flow"`
}

// UnmarshalJSON accepts the object form, a bare string (taken as the
// architecture) or a list (taken as the components).
func (im *Implementation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*im = Implementation{}
		return nil
	}
	switch data[0] {
	case '{':
		var raw struct {
			Architecture json.RawMessage `json:"architecture"`
			Components   Strings         `json:"components"`
			DataFlow     json.RawMessage `json:"data_flow"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*im = Implementation{
			Architecture: flatten(raw.Architecture),
			Components:   raw.Components,
			DataFlow:     flatten(raw.DataFlow),
		}
	case '[':
		var comps Strings
		if err := json.Unmarshal(data, &comps); err != nil {
			return err
		}
		*im = Implementation{Components: comps}
	default:
		*im = Implementation{Architecture: flatten(data)}
	}
	return nil
}

// Slug returns the project directory name: the project name lowercased with
// spaces replaced by underscores. Path separators are replaced as well so the
// result is always a single path element.
func (d Document) Slug() string {
	name := strings.TrimSpace(d.ProjectName)
	if name == "" {
		return DefaultSlug
	}
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	slug := strings.ToLower(r.Replace(name))
	if slug == "." || slug == ".." {
		return DefaultSlug
	}
	return slug
}

// ImageName returns a container image tag derived from the project name.
func (d Document) ImageName() string {
	name := strings.TrimSpace(d.ProjectName)
	if name == "" {
		return "app"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// Components returns localhost_implementation.components.
func (d Document) Components() []string {
	return d.LocalhostImplementation.Components
}

// Strings is a list of strings that decodes loosely typed model output: a
// bare string becomes a one-element list, objects collapse to their "name"
// field (or compact JSON), and scalars keep their literal text.
type Strings []string

func (s *Strings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] != '[' {
		*s = Strings{flatten(data)}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Strings, 0, len(items))
	for _, it := range items {
		out = append(out, flatten(it))
	}
	*s = out
	return nil
}

// StringMap maps a name to a description. Non-string values are rendered to
// compact JSON. A list becomes entries keyed by each item's "name" field, or
// by its 1-based position; a scalar becomes entry "1".
type StringMap map[string]string

func (m *StringMap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	switch data[0] {
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(StringMap, len(raw))
		for k, v := range raw {
			out[k] = flatten(v)
		}
		*m = out
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(StringMap, len(items))
		for i, it := range items {
			key, val := listEntry(it)
			if key == "" {
				key = strconv.Itoa(i + 1)
			}
			out[key] = val
		}
		*m = out
	default:
		*m = StringMap{"1": flatten(data)}
	}
	return nil
}

// listEntry splits an object item {"name": ..., ...} into its name and the
// remaining fields. Other items have no key.
func listEntry(it json.RawMessage) (key, val string) {
	var obj map[string]json.RawMessage
	if json.Unmarshal(it, &obj) != nil {
		return "", flatten(it)
	}
	name, ok := obj["name"]
	if !ok {
		return "", flatten(it)
	}
	key = flatten(name)
	delete(obj, "name")
	if len(obj) == 1 {
		for _, v := range obj {
			return key, flatten(v)
		}
	}
	rest, err := json.Marshal(obj)
	if err != nil {
		return key, ""
	}
	return key, string(rest)
}

// flatten renders one JSON value as display text.
func flatten(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err == nil {
			if name, ok := obj["name"]; ok {
				var s string
				if json.Unmarshal(name, &s) == nil && s != "" {
					return s
				}
			}
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}
