package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/blueprint/internal/api"
	"github.com/kalambet/blueprint/internal/generate"
	"github.com/kalambet/blueprint/internal/jobs"
	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/router"
	"github.com/kalambet/blueprint/internal/scaffold"
	"github.com/kalambet/blueprint/internal/storage"
)

// docPath returns the --doc flag or the configured requirements file.
func docPath(cmd *cobra.Command, fallback string) string {
	if p, _ := cmd.Flags().GetString("doc"); p != "" {
		return p
	}
	return fallback
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Create the project skeleton for a requirements document",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if out == "" {
			out = cfg.Output.Dir
		}
		doc, err := requirements.Load(docPath(cmd, cfg.Output.RequirementsFile))
		if err != nil {
			return err
		}

		l := scaffold.Plan(doc)
		if dryRun {
			return printPlan(os.Stdout, out, l)
		}

		rep, err := scaffold.Apply(out, doc, l)
		if err != nil {
			return err
		}
		printReport(rep)
		return nil
	},
}

func printPlan(w io.Writer, out string, l scaffold.Layout) error {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Root:"), filepath.Join(out, l.Root))
	for _, d := range l.Dirs {
		fmt.Fprintf(w, "  %s/\n", d)
	}
	fmt.Fprintf(w, "%s %s (%s)\n", colorize(colorBold, "Dockerfile:"), l.Dockerfile, l.Container)
	compose, err := l.ComposeYAML()
	if err != nil {
		return err
	}
	if compose != nil {
		fmt.Fprintf(w, "%s\n%s", colorize(colorBold, "docker-compose.yml:"), compose)
	}
	return nil
}

func printReport(rep scaffold.Report) {
	printSuccess("Project skeleton created at %s", rep.Root)
	printStatus("Directories", "%s", plural(len(rep.Dirs), "directory", "directories"))
	printStatus("Files", "%s", plural(len(rep.Files), "file", "files"))
	for _, f := range rep.Failures {
		printWarning("%s: %s", f.Path, f.Error)
	}
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Scaffold a project and generate every planned file",
	Long: `Scaffold the project for a requirements document and generate one file per
implementation-plan task, in order. Each file is produced by the configured
synthesis backend (synth.backend) and recorded as a run in the local database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if out == "" {
			out = cfg.Output.Dir
		}
		doc, err := requirements.Load(docPath(cmd, cfg.Output.RequirementsFile))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		synth, err := synthesizer(ctx, cfg)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore(store)

		run, err := startLocalRun(store, doc, out)
		if err != nil {
			return err
		}
		printStatus("Run", "%s", run.ID)

		rep, res, buildErr := runGenerate(ctx, synth, &jobs.RunRecorder{Store: store, RunID: run.ID}, out, doc)
		errMsg := ""
		if buildErr != nil {
			errMsg = buildErr.Error()
		}
		if err := store.FinishRun(run.ID, errMsg); err != nil {
			printWarning("finishing run: %v", err)
		}
		if buildErr != nil {
			return buildErr
		}

		for _, f := range rep.Failures {
			printWarning("%s: %s", f.Path, f.Error)
		}
		printSuccess("Generated %s in %s", plural(len(res.Files), "file", "files"), res.Root)
		return nil
	},
}

// startLocalRun records a run for a synchronous generate.
func startLocalRun(store *storage.Store, doc requirements.Document, out string) (storage.Run, error) {
	stored, err := api.SaveDocument(store, doc, "")
	if err != nil {
		return storage.Run{}, fmt.Errorf("storing document: %w", err)
	}
	run := storage.Run{ID: uuid.New().String(), DocumentID: stored.ID, OutputDir: out}
	if err := store.CreateRun(run); err != nil {
		return storage.Run{}, fmt.Errorf("creating run: %w", err)
	}
	root := filepath.Join(out, doc.Slug())
	if err := store.StartRun(run.ID, root); err != nil {
		return storage.Run{}, fmt.Errorf("starting run: %w", err)
	}
	run.Root = root
	return run, nil
}

func runGenerate(ctx context.Context, synth generate.Synthesizer, rec generate.Recorder, out string, doc requirements.Document) (scaffold.Report, generate.Result, error) {
	p := generate.New(synth, generate.Options{
		Recorder: rec,
		Observer: printProgress,
	})
	return p.Build(ctx, out, doc)
}

func printProgress(pr generate.Progress) {
	if pr.Done {
		printSuccess("%s", pr.Task.Path)
		return
	}
	printStep("[%d/%d] %s -> %s", pr.Index+1, pr.Total, pr.Task.Task, pr.Task.Path)
}

var routeCmd = &cobra.Command{
	Use:   "route [task...]",
	Short: "Show the file an implementation task is routed to",
	Long: `Show the file an implementation task is routed to. Without a task, every
implementation-plan entry of the requirements document is listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		task := strings.TrimSpace(strings.Join(args, " "))
		path := docPath(cmd, cfg.Output.RequirementsFile)
		if task != "" {
			var doc requirements.Document
			if _, statErr := os.Stat(path); statErr == nil {
				if doc, err = requirements.Load(path); err != nil {
					return err
				}
			}
			p, area := router.Explain(task, doc)
			fmt.Printf("%s  %s\n", p, colorize(colorCyan, "("+area+")"))
			return nil
		}

		doc, err := requirements.Load(path)
		if err != nil {
			return err
		}
		for i, t := range router.Tasks(doc) {
			fmt.Printf("%2d. %s\n    %s\n", i+1, t.Task, colorize(colorCyan, t.Path))
		}
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <project-dir>",
	Short: "List the files of a generated project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern, _ := cmd.Flags().GetString("pattern")
		files, err := scaffold.Inventory(args[0], pattern)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{scaffoldCmd, generateCmd, routeCmd} {
		c.Flags().String("doc", "", "requirements document (default output.requirements_file)")
	}
	scaffoldCmd.Flags().String("out", "", "base directory (default output.dir)")
	scaffoldCmd.Flags().Bool("dry-run", false, "print the planned layout without writing anything")
	generateCmd.Flags().String("out", "", "base directory (default output.dir)")
	treeCmd.Flags().String("pattern", "**", "glob pattern relative to the project directory")
}
