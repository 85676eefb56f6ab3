package storage

import "database/sql"

// documentCacheSize bounds the decoded-row cache. Documents are immutable
// once stored, so entries never go stale.
const documentCacheSize = 256

// SaveDocument stores a new document. IDs are never reused.
func (s *Store) SaveDocument(d Document) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (id, project_name, slug, body_json, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectName, d.Slug, d.BodyJSON, d.SessionID, now(),
	)
	return err
}

const documentColumns = `id, project_name, slug, body_json, session_id, created_at`

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var d Document
	var createdAt string
	if err := row.Scan(&d.ID, &d.ProjectName, &d.Slug, &d.BodyJSON, &d.SessionID, &createdAt); err != nil {
		return Document{}, err
	}
	var err error
	d.CreatedAt, err = parseTime(createdAt)
	return d, err
}

// GetDocument returns a document by ID, from the cache when possible.
func (s *Store) GetDocument(id string) (Document, error) {
	if d, ok := s.docs.Get(id); ok {
		return d, nil
	}
	d, err := scanDocument(s.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	s.docs.Add(id, d)
	return d, nil
}

// ListDocuments returns the most recent documents first.
func (s *Store) ListDocuments(limit int) ([]Document, error) {
	rows, err := s.db.Query(`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
