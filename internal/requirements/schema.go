package requirements

import "github.com/kalambet/blueprint/internal/engine"

// Schema returns the JSON schema of a Document for schema-constrained chat.
func Schema() *engine.Schema {
	list := func(desc string) engine.SchemaProperty {
		return engine.SchemaProperty{Type: "array", Description: desc, Items: &engine.SchemaProperty{Type: "string"}}
	}
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"project_name":          {Type: "string", Description: "Short project name"},
			"core_requirements":     list("Core features"),
			"external_dependencies": list("External services or APIs"),
			"localhost_implementation": {
				Type: "object",
				Properties: map[string]engine.SchemaProperty{
					"architecture": {Type: "string"},
					"components":   list("Components such as React frontend, Express backend, SQLite database"),
					"data_flow":    {Type: "string"},
				},
			},
			"mock_strategies":     {Type: "object", Description: "External service name to mock approach"},
			"implementation_plan": list("Ordered implementation steps"),
			"assumptions":         list("Assumptions made"),
		},
		Required: []string{
			"project_name", "core_requirements", "external_dependencies",
			"localhost_implementation", "mock_strategies", "implementation_plan", "assumptions",
		},
	}
}
