package requirements

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the conventional name of the persisted document.
const DefaultFile = "decoupled_requirements.json"

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Marshal encodes doc as indented JSON, or YAML when path ends in .yaml/.yml.
func Marshal(path string, doc Document) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(doc)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Save writes doc to path atomically.
func Save(path string, doc Document) error {
	data, err := Marshal(path, doc)
	if err != nil {
		return fmt.Errorf("encoding requirements: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// SaveRaw writes best-effort text unchanged, for sessions that ended without
// an approved document.
func SaveRaw(path, text string) error {
	if err := writeFileAtomic(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads a document written by Save. A file that holds raw text rather
// than a document fails the acceptance gate and returns an error.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}

	if isYAML(path) {
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		if doc.ProjectName == "" {
			return Document{}, fmt.Errorf("%s: missing project_name", path)
		}
		return doc, nil
	}

	if !json.Valid(data) {
		return Document{}, fmt.Errorf("%s is not a requirements document", path)
	}
	doc, ok := Accept(Extraction{Value: data, Text: string(data)})
	if !ok {
		return Document{}, fmt.Errorf("%s is not a requirements document", path)
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
