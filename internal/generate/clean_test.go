package generate

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced jsx",
			in:   "```jsx\nexport default function App() {}\n```",
			want: "export default function App() {}",
		},
		{
			name: "path comment header",
			in:   "// src/backend/server.js\nconst express = require('express');",
			want: "const express = require('express');",
		},
		{
			name: "file label header inside fence",
			in:   "```javascript\n// File: src/backend/routes/tasks.js\n\nconst router = express.Router();\n```\n",
			want: "const router = express.Router();",
		},
		{
			name: "hash path header",
			in:   "# app/main.py\nimport os",
			want: "import os",
		},
		{
			name: "descriptive comment kept",
			in:   "// Task list component\nexport const TaskList = () => null;",
			want: "// Task list component\nexport const TaskList = () => null;",
		},
		{
			name: "shebang kept",
			in:   "#!/usr/bin/env node\nconsole.log(1)",
			want: "#!/usr/bin/env node\nconsole.log(1)",
		},
		{
			name: "path comment below code kept",
			in:   "const a = 1;\n// see utils/format.js\n",
			want: "const a = 1;\n// see utils/format.js",
		},
		{
			name: "version comment kept",
			in:   "// v1.2\nconst a = 1;",
			want: "// v1.2\nconst a = 1;",
		},
		{
			name: "dotted word comment kept",
			in:   "// Note.\nconst a = 1;",
			want: "// Note.\nconst a = 1;",
		},
		{
			name: "labeled bare file name",
			in:   "// File: server.js\nconst a = 1;",
			want: "const a = 1;",
		},
		{
			name: "css fence",
			in:   "```css\nbody { margin: 0; }\n```",
			want: "body { margin: 0; }",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
