package storage

import (
	"database/sql"
	"fmt"
)

func (s *Store) CreateRun(r Run) error {
	ts := now()
	status := r.Status
	if status == "" {
		status = RunPending
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, document_id, output_dir, root, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DocumentID, r.OutputDir, r.Root, status, r.Error, ts, ts,
	)
	return err
}

// StartRun marks a run as running under root and clears files recorded by
// an earlier attempt.
func (s *Store) StartRun(id, root string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning start transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE runs SET status = ?, root = ?, error = '', updated_at = ? WHERE id = ?`, RunRunning, root, now(), id)
	if err := checkAffected(res, err); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM generated_files WHERE run_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// FinishRun marks a run completed, or failed with errMsg when it is non-empty.
func (s *Store) FinishRun(id, errMsg string) error {
	status := RunCompleted
	if errMsg != "" {
		status = RunFailed
	}
	res, err := s.db.Exec(`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`, status, errMsg, now(), id)
	return checkAffected(res, err)
}

const runColumns = `id, document_id, output_dir, root, status, error, created_at, updated_at`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	var createdAt, updatedAt string
	if err := row.Scan(&r.ID, &r.DocumentID, &r.OutputDir, &r.Root, &r.Status, &r.Error, &createdAt, &updatedAt); err != nil {
		return Run{}, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return Run{}, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Run{}, err
	}
	return r, nil
}

func (s *Store) GetRun(id string) (Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RecordFile appends a generated file to a run.
func (s *Store) RecordFile(f File) error {
	_, err := s.db.Exec(`
		INSERT INTO generated_files (run_id, seq, task, path, content, created_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM generated_files WHERE run_id = ?), ?, ?, ?, ?)`,
		f.RunID, f.RunID, f.Task, f.Path, f.Content, now(),
	)
	return err
}

// ListRunFiles returns a run's files in write order.
func (s *Store) ListRunFiles(runID string) ([]File, error) {
	rows, err := s.db.Query(`
		SELECT run_id, seq, task, path, content, created_at
		FROM generated_files WHERE run_id = ? ORDER BY seq ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []File
	for rows.Next() {
		var f File
		var createdAt string
		if err := rows.Scan(&f.RunID, &f.Seq, &f.Task, &f.Path, &f.Content, &createdAt); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}
