package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Session is one elicitation dialogue.
type Session struct {
	ID         string    `json:"id"`
	Request    string    `json:"request"`
	Model      string    `json:"model"`
	State      string    `json:"state"`
	Simple     bool      `json:"simple"`
	Budget     int       `json:"budget"`
	Turns      int       `json:"turns"`
	Raw        string    `json:"raw,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Entry is one transcript message of a session.
type Entry struct {
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a stored requirements document.
type Document struct {
	ID          string    `json:"id"`
	ProjectName string    `json:"project_name"`
	Slug        string    `json:"slug"`
	BodyJSON    string    `json:"-"` // the document as JSON
	SessionID   string    `json:"session_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one scaffold-and-generate execution for a document.
type Run struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	OutputDir  string    `json:"output_dir"`
	Root       string    `json:"root,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// File is a file written by a run.
type File struct {
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"`
	Task      string    `json:"task"`
	Path      string    `json:"path"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job is a queued unit of background work. PayloadJSON is opaque to the
// store.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
