// Package generate populates a scaffolded project by asking a synthesizer for
// each routed implementation task, in plan order.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/router"
	"github.com/kalambet/blueprint/internal/scaffold"
)

// Recorder persists each written file.
type Recorder interface {
	RecordFile(ctx context.Context, task router.FileTask, content string) error
}

// Progress is reported before and after every task.
type Progress struct {
	Index int
	Total int
	Task  router.FileTask
	Done  bool
}

// Options configure a Pipeline.
type Options struct {
	Recorder Recorder
	Observer func(Progress)
}

// Pipeline runs generation tasks sequentially; later tasks see the files
// written by earlier ones.
type Pipeline struct {
	synth Synthesizer
	opts  Options
}

// New creates a Pipeline.
func New(synth Synthesizer, opts Options) *Pipeline {
	return &Pipeline{synth: synth, opts: opts}
}

// Result describes one run. Files lists the tasks whose files were written,
// in order.
type Result struct {
	Root    string            `json:"root"`
	Files   []router.FileTask `json:"files"`
	Context *ProjectContext   `json:"-"`
	Index   *SearchIndex      `json:"-"`
}

// Run generates every task of doc under root. The first synthesis or write
// failure stops the run; files written before it stay on disk and Result
// reflects them. Tasks routed to the same path overwrite each other.
func (p *Pipeline) Run(ctx context.Context, root string, doc requirements.Document) (Result, error) {
	res := Result{
		Root:    root,
		Context: NewProjectContext(),
		Index:   NewSearchIndex(),
	}

	tasks := router.Tasks(doc)
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p.emit(Progress{Index: i, Total: len(tasks), Task: task})

		code, err := p.synth.Synthesize(ctx, Request{
			Path:     task.Path,
			Task:     task.Task,
			Purpose:  task.Purpose,
			Document: doc,
			Plan:     doc.ImplementationPlan,
			Context:  res.Context,
		})
		if err != nil {
			return res, fmt.Errorf("task %d %q: synthesizing %s: %w", i+1, task.Task, task.Path, err)
		}
		code = Clean(code)

		full := filepath.Join(root, filepath.FromSlash(task.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return res, fmt.Errorf("task %d %q: %w", i+1, task.Task, err)
		}
		if err := os.WriteFile(full, []byte(code), 0o644); err != nil {
			return res, fmt.Errorf("task %d %q: writing %s: %w", i+1, task.Task, task.Path, err)
		}

		res.Context.Set(task.Path, code)
		res.Index.Add(task.Path, code)
		res.Files = append(res.Files, task)

		if p.opts.Recorder != nil {
			if err := p.opts.Recorder.RecordFile(ctx, task, code); err != nil {
				slog.Warn("recording generated file", "path", task.Path, "error", err)
			}
		}
		p.emit(Progress{Index: i, Total: len(tasks), Task: task, Done: true})
	}

	return res, nil
}

// Build scaffolds doc under baseDir and then runs the pipeline in the new
// project root.
func (p *Pipeline) Build(ctx context.Context, baseDir string, doc requirements.Document) (scaffold.Report, Result, error) {
	rep, err := scaffold.Apply(baseDir, doc, scaffold.Plan(doc))
	if err != nil {
		return rep, Result{}, fmt.Errorf("scaffolding: %w", err)
	}
	res, err := p.Run(ctx, rep.Root, doc)
	return rep, res, err
}

func (p *Pipeline) emit(pr Progress) {
	if p.opts.Observer != nil {
		p.opts.Observer(pr)
	}
}
