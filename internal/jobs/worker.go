// Package jobs runs queued project generation in the background.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/blueprint/internal/generate"
	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/storage"
)

// TypeGenerate is the job type for scaffold-and-generate runs.
const TypeGenerate = "generate_project"

// JobStore abstracts the queue and run bookkeeping the worker needs.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	RequeueInterrupted() (int64, error)
	GetDocument(id string) (storage.Document, error)
	StartRun(id, root string) error
	FinishRun(id, errMsg string) error
	RecordFile(f storage.File) error
}

// Queue is what Submit needs to create a run and its job.
type Queue interface {
	CreateRun(r storage.Run) error
	EnqueueJob(job storage.Job) error
}

// Payload is the JSON body of a generate_project job.
type Payload struct {
	RunID      string `json:"run_id"`
	DocumentID string `json:"document_id"`
	OutputDir  string `json:"output_dir"`
}

// Submit creates a pending run for a stored document and enqueues the job
// that executes it. It returns the run.
func Submit(q Queue, documentID, outputDir string) (storage.Run, error) {
	if outputDir == "" {
		outputDir = "."
	}
	run := storage.Run{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		OutputDir:  outputDir,
		Status:     storage.RunPending,
	}
	if err := q.CreateRun(run); err != nil {
		return storage.Run{}, fmt.Errorf("creating run: %w", err)
	}

	payload, err := json.Marshal(Payload{RunID: run.ID, DocumentID: documentID, OutputDir: outputDir})
	if err != nil {
		return storage.Run{}, err
	}
	if err := q.EnqueueJob(storage.Job{
		ID:          uuid.New().String(),
		Type:        TypeGenerate,
		PayloadJSON: string(payload),
	}); err != nil {
		return storage.Run{}, fmt.Errorf("enqueueing run %s: %w", run.ID, err)
	}
	return run, nil
}

// Worker processes generate_project jobs from the SQLite job queue.
type Worker struct {
	store  JobStore
	synth  generate.Synthesizer
	poll   time.Duration
	events *Hub
	logger *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, synth generate.Synthesizer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		synth:  synth,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// WithEvents makes the worker publish run progress to h.
func (w *Worker) WithEvents(h *Hub) *Worker {
	w.events = h
	return w
}

// Run polls for jobs until ctx is cancelled. Jobs a previous process left
// running are requeued first.
func (w *Worker) Run(ctx context.Context) {
	if n, err := w.store.RequeueInterrupted(); err != nil {
		w.logger.Error("requeueing interrupted jobs", "error", err)
	} else if n > 0 {
		w.logger.Info("requeued interrupted jobs", "count", n)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single generate_project job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{TypeGenerate})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	logger := w.logger.With("run_id", payload.RunID)

	res, err := w.buildRun(ctx, payload, logger)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	// Every attempt leaves the run in a terminal state, including attempts
	// that fail before generation starts.
	if ferr := w.store.FinishRun(payload.RunID, errMsg); ferr != nil {
		logger.Error("failed to finish run", "error", ferr)
	}
	if err != nil {
		w.events.Publish(Event{Type: EventFailed, RunID: payload.RunID, Error: errMsg})
		return err
	}
	w.events.Publish(Event{Type: EventCompleted, RunID: payload.RunID, Path: res.Root, Total: len(res.Files)})

	logger.Info("run completed", "root", res.Root, "files", len(res.Files))
	return nil
}

func (w *Worker) buildRun(ctx context.Context, payload Payload, logger *slog.Logger) (generate.Result, error) {
	stored, err := w.store.GetDocument(payload.DocumentID)
	if err != nil {
		return generate.Result{}, fmt.Errorf("loading document %s: %w", payload.DocumentID, err)
	}
	var doc requirements.Document
	if err := json.Unmarshal([]byte(stored.BodyJSON), &doc); err != nil {
		return generate.Result{}, fmt.Errorf("decoding document %s: %w", stored.ID, err)
	}

	root := filepath.Join(payload.OutputDir, doc.Slug())
	if err := w.store.StartRun(payload.RunID, root); err != nil {
		return generate.Result{}, fmt.Errorf("starting run %s: %w", payload.RunID, err)
	}

	p := generate.New(w.synth, generate.Options{
		Recorder: &RunRecorder{Store: w.store, RunID: payload.RunID},
		Observer: func(pr generate.Progress) {
			if !pr.Done {
				return
			}
			logger.Info("file generated", "path", pr.Task.Path, "n", pr.Index+1, "of", pr.Total)
			w.events.Publish(Event{
				Type:  EventFile,
				RunID: payload.RunID,
				Task:  pr.Task.Task,
				Path:  pr.Task.Path,
				Index: pr.Index + 1,
				Total: pr.Total,
			})
		},
	})

	rep, res, err := p.Build(ctx, payload.OutputDir, doc)
	for _, f := range rep.Failures {
		logger.Warn("scaffold file not written", "path", f.Path, "error", f.Error)
	}
	return res, err
}
