package elicit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadBrief loads an initial request from a file. PDF files are reduced to
// their plain text; anything else is read as UTF-8 text.
func ReadBrief(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading brief: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf brief: %w", err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}
