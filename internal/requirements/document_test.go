package requirements

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Todo App", "todo_app"},
		{"  Task Tracker  ", "task_tracker"},
		{"", DefaultSlug},
		{"api/v2 tool", "api_v2_tool"},
		{"..", DefaultSlug},
	}
	for _, tt := range tests {
		if got := (Document{ProjectName: tt.name}).Slug(); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestImageName(t *testing.T) {
	if got := (Document{ProjectName: "Todo App"}).ImageName(); got != "todo-app" {
		t.Errorf("ImageName = %q, want todo-app", got)
	}
	if got := (Document{}).ImageName(); got != "app" {
		t.Errorf("ImageName = %q, want app", got)
	}
}

func TestStrings_Tolerant(t *testing.T) {
	tests := []struct {
		in   string
		want Strings
	}{
		{`["a","b"]`, Strings{"a", "b"}},
		{`"single"`, Strings{"single"}},
		{`null`, nil},
		{`[{"name":"React frontend","port":3000}]`, Strings{"React frontend"}},
		{`[{"port":3000}]`, Strings{`{"port":3000}`}},
		{`[1, true]`, Strings{"1", "true"}},
	}
	for _, tt := range tests {
		var got Strings
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Unmarshal(%s) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestStringMap_Tolerant(t *testing.T) {
	var got StringMap
	if err := json.Unmarshal([]byte(`{"payments":"stub","email":{"kind":"console"}}`), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := StringMap{"payments": "stub", "email": `{"kind":"console"}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got = nil
	if err := json.Unmarshal([]byte(`"none"`), &got); err != nil {
		t.Fatalf("Unmarshal scalar: %v", err)
	}
	if !reflect.DeepEqual(got, StringMap{"1": "none"}) {
		t.Errorf("scalar = %v", got)
	}
}

func TestImplementation_Tolerant(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Implementation
	}{
		{"object", `{"architecture":"monolith","components":["Express backend"],"data_flow":{"steps":2}}`,
			Implementation{Architecture: "monolith", Components: Strings{"Express backend"}, DataFlow: `{"steps":2}`}},
		{"string", `"monolith"`, Implementation{Architecture: "monolith"}},
		{"list", `["React frontend","SQLite database"]`, Implementation{Components: Strings{"React frontend", "SQLite database"}}},
		{"null", `null`, Implementation{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Implementation
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
