package jobs

import (
	"context"

	"github.com/kalambet/blueprint/internal/router"
	"github.com/kalambet/blueprint/internal/storage"
)

// FileStore persists generated files.
type FileStore interface {
	RecordFile(f storage.File) error
}

// RunRecorder records generated files against a run.
type RunRecorder struct {
	Store FileStore
	RunID string
}

func (r *RunRecorder) RecordFile(_ context.Context, task router.FileTask, content string) error {
	return r.Store.RecordFile(storage.File{
		RunID:   r.RunID,
		Task:    task.Task,
		Path:    task.Path,
		Content: content,
	})
}
