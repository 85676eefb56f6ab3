package elicit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadBrief_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.md")
	if err := os.WriteFile(path, []byte("\n  A kanban board for a small team.\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadBrief(path)
	if err != nil {
		t.Fatalf("ReadBrief: %v", err)
	}
	if got != "A kanban board for a small team." {
		t.Errorf("got %q", got)
	}
}

func TestReadBrief_Missing(t *testing.T) {
	if _, err := ReadBrief(filepath.Join(t.TempDir(), "none.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadBrief_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBrief(path); err == nil {
		t.Error("expected error for invalid pdf")
	}
}
