package storage

import (
	"database/sql"
	"fmt"
)

func (s *Store) CreateSession(sess Session) error {
	ts := now()
	state := sess.State
	if state == "" {
		state = "AWAITING_RESPONSE"
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, request, model, state, simple, budget, turns, raw, document_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Request, sess.Model, state, sess.Simple, sess.Budget, sess.Turns, sess.Raw, sess.DocumentID, ts, ts,
	)
	return err
}

// FinishSession stores the final state of a session.
func (s *Store) FinishSession(sess Session) error {
	res, err := s.db.Exec(`
		UPDATE sessions SET state = ?, simple = ?, budget = ?, turns = ?, raw = ?, document_id = ?, updated_at = ?
		WHERE id = ?`,
		sess.State, sess.Simple, sess.Budget, sess.Turns, sess.Raw, sess.DocumentID, now(), sess.ID,
	)
	return checkAffected(res, err)
}

const sessionColumns = `id, request, model, state, simple, budget, turns, raw, document_id, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var sess Session
	var createdAt, updatedAt string
	if err := row.Scan(&sess.ID, &sess.Request, &sess.Model, &sess.State, &sess.Simple, &sess.Budget,
		&sess.Turns, &sess.Raw, &sess.DocumentID, &createdAt, &updatedAt); err != nil {
		return Session{}, err
	}
	var err error
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return Session{}, err
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Store) GetSession(id string) (Session, error) {
	sess, err := scanSession(s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// ListSessions returns the most recent sessions first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(`SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sess)
	}
	return results, rows.Err()
}

// AppendEntry adds the next transcript entry of a session.
func (s *Store) AppendEntry(sessionID, role, text string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	var seq int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM transcript_entries WHERE session_id = ?`, sessionID).Scan(&seq); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO transcript_entries (session_id, seq, role, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, seq, role, text, now(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Transcript returns a session's entries in order.
func (s *Store) Transcript(sessionID string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT session_id, seq, role, text, created_at
		FROM transcript_entries WHERE session_id = ? ORDER BY seq ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Role, &e.Text, &createdAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
