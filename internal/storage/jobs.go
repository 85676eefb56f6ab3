package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 3
	maxRetryDelay      = 5 * time.Minute
)

const jobColumns = `id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	if err := row.Scan(&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError); err != nil {
		return Job{}, err
	}
	j.LastError = lastError.String
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&j.RunAfter, runAfter}, {&j.CreatedAt, createdAt}, {&j.UpdatedAt, updatedAt}} {
		t, err := parseTime(f.src)
		if err != nil {
			return Job{}, fmt.Errorf("job %s: %w", j.ID, err)
		}
		*f.dst = t
	}
	return j, nil
}

// EnqueueJob adds a pending job. A zero RunAfter makes it due immediately
// and a zero MaxAttempts means three attempts.
func (s *Store) EnqueueJob(job Job) error {
	ts := now()
	runAfter := ts
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = defaultMaxAttempts
	}
	_, err := s.db.Exec(`INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, JobPending, job.MaxAttempts, runAfter, ts, ts)
	if err != nil {
		return fmt.Errorf("enqueueing job %s: %w", job.ID, err)
	}
	return nil
}

// ClaimNextJob moves the oldest due pending job of one of the given types to
// running and returns it. It returns nil when nothing is due.
func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}
	ts := now()
	args := []any{JobRunning, ts, JobPending, ts}
	for _, t := range types {
		args = append(args, t)
	}
	q := `UPDATE jobs SET status = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = ? AND run_after <= ? AND type IN (?` + strings.Repeat(",?", len(types)-1) + `)
			ORDER BY run_after, created_at
			LIMIT 1
		)
		RETURNING ` + jobColumns

	j, err := scanJob(s.db.QueryRow(q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}
	return &j, nil
}

// CompleteJob marks a job completed.
func (s *Store) CompleteJob(id string) error {
	res, err := s.db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, JobCompleted, now(), id)
	return checkAffected(res, err)
}

// FailJob records a failed attempt. The job goes back to pending with an
// exponential delay, or to failed once its attempts are used up.
func (s *Store) FailJob(id string, errMsg string) error {
	j, err := s.GetJob(id)
	if err != nil {
		return err
	}
	j.Attempts++

	t := time.Now().UTC()
	status, runAfter := JobPending, t.Add(retryDelay(j.Attempts))
	if j.Attempts >= j.MaxAttempts {
		status, runAfter = JobFailed, j.RunAfter
	}
	res, err := s.db.Exec(`UPDATE jobs SET status = ?, attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
		status, j.Attempts, errMsg, runAfter.UTC().Format(time.RFC3339), t.Format(time.RFC3339), id)
	return checkAffected(res, err)
}

// retryDelay is 2^attempts seconds, capped at maxRetryDelay.
func retryDelay(attempts int) time.Duration {
	if attempts >= 9 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<attempts)*time.Second, maxRetryDelay)
}

// RequeueInterrupted returns jobs left running by a previous process to
// pending. It reports how many were requeued.
func (s *Store) RequeueInterrupted() (int64, error) {
	res, err := s.db.Exec(`UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`, JobPending, now(), JobRunning)
	if err != nil {
		return 0, fmt.Errorf("requeueing interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// GetJob returns a job by ID.
func (s *Store) GetJob(id string) (Job, error) {
	j, err := scanJob(s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	return j, nil
}
