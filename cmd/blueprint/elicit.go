package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/blueprint/internal/api"
	"github.com/kalambet/blueprint/internal/elicit"
	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/storage"
)

var elicitCmd = &cobra.Command{
	Use:   "elicit [request...]",
	Short: "Run the requirements dialogue and save the approved document",
	Long: `Run the requirements dialogue for an application request.

The model asks clarifying questions; answer them on stdin. When it proposes a
requirements document you can approve it (yes), request changes (modify) or
add information. If the turn budget runs out, the final reply is saved as
raw text, or normalized into a document with --normalize.

Examples:
  blueprint elicit "simple todo app with React and SQLite"
  blueprint elicit --brief-file brief.pdf --out todo.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		maxTurns, _ := cmd.Flags().GetInt("max-turns")
		out, _ := cmd.Flags().GetString("out")
		briefFile, _ := cmd.Flags().GetString("brief-file")
		normalize, _ := cmd.Flags().GetBool("normalize")
		noStore, _ := cmd.Flags().GetBool("no-store")

		request := strings.TrimSpace(strings.Join(args, " "))
		if briefFile != "" {
			brief, err := elicit.ReadBrief(briefFile)
			if err != nil {
				return err
			}
			request = strings.TrimSpace(request + "\n\n" + brief)
		}
		if request == "" {
			return fmt.Errorf("a request or --brief-file is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if maxTurns <= 0 {
			maxTurns = cfg.Elicit.MaxTurns
		}
		if out == "" {
			out = cfg.Output.RequirementsFile
		}

		ctx := cmd.Context()
		eng, err := chatEngine(ctx, cfg)
		if err != nil {
			return err
		}

		opts := elicit.Options{
			Model:    cfg.Ollama.ChatModel,
			MaxTurns: maxTurns,
			Observer: printEvent,
		}

		var store *storage.Store
		if !noStore {
			store, err = openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			rec, err := newSessionRecorder(store, request, cfg.Ollama.ChatModel, maxTurns)
			if err != nil {
				return err
			}
			opts.Recorder = rec
			printStatus("Session", "%s", rec.id)
		}

		sess := elicit.NewSession(eng, newStdinAsker(os.Stdin, messages), opts)
		outcome, err := sess.Run(ctx, request)
		if err != nil {
			return err
		}

		if outcome.Approved() {
			if err := requirements.Save(out, *outcome.Document); err != nil {
				return err
			}
			printSuccess("Requirements saved to %s", out)
			return nil
		}

		printWarning("Turn budget (%d) reached without approval", outcome.Budget)
		if !normalize {
			rawPath := out + ".raw.txt"
			if err := requirements.SaveRaw(rawPath, outcome.Raw); err != nil {
				return err
			}
			printStatus("Raw reply", "%s", rawPath)
			printStep("Run `blueprint normalize %s` to convert it into a document", rawPath)
			return nil
		}

		printStep("Normalizing final reply...")
		doc, err := elicit.Normalize(ctx, eng, cfg.Ollama.ChatModel, outcome.Raw)
		if err != nil {
			return err
		}
		if err := requirements.Save(out, doc); err != nil {
			return err
		}
		if store != nil {
			if _, err := api.SaveDocument(store, doc, ""); err != nil {
				printWarning("storing normalized document: %v", err)
			}
		}
		printSuccess("Normalized requirements saved to %s", out)
		return nil
	},
}

func init() {
	elicitCmd.Flags().Int("max-turns", 0, "turn budget (default elicit.max_turns)")
	elicitCmd.Flags().String("out", "", "output file, .json or .yaml (default output.requirements_file)")
	elicitCmd.Flags().String("brief-file", "", "read the request from a text or PDF brief")
	elicitCmd.Flags().Bool("normalize", false, "normalize the final reply into a document when the budget runs out")
	elicitCmd.Flags().Bool("no-store", false, "do not record the session in the local database")
}

func printEvent(e elicit.Event) {
	switch e.Kind {
	case elicit.EventSimple:
		printStep("%s", e.Text)
	case elicit.EventTurn:
		printStep("Turn %d", e.Turn)
	case elicit.EventReply:
		fmt.Fprintf(os.Stdout, "\n%s\n%s\n\n", colorize(colorBold, "Assistant:"), e.Text)
	case elicit.EventCandidate:
		printSuccess("Requirements document found: %s", e.Text)
	}
}

// stdinAsker reads one line per question.
type stdinAsker struct {
	in  *bufio.Reader
	out io.Writer
}

func newStdinAsker(in io.Reader, out io.Writer) *stdinAsker {
	return &stdinAsker{in: bufio.NewReader(in), out: out}
}

func (a *stdinAsker) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(a.out, "%s ", colorize(colorCyan, prompt))
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// sessionRecorder persists a dialogue to the store as it runs.
type sessionRecorder struct {
	store *storage.Store
	id    string
}

func newSessionRecorder(store *storage.Store, request, model string, maxTurns int) (*sessionRecorder, error) {
	id := uuid.New().String()
	err := store.CreateSession(storage.Session{
		ID:      id,
		Request: request,
		Model:   model,
		State:   string(elicit.StateAwaitingResponse),
		Simple:  elicit.IsSimple(request),
		Budget:  elicit.Budget(request, maxTurns),
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &sessionRecorder{store: store, id: id}, nil
}

func (r *sessionRecorder) RecordEntry(_ context.Context, e elicit.Entry) error {
	return r.store.AppendEntry(r.id, string(e.Role), e.Text)
}

func (r *sessionRecorder) RecordOutcome(_ context.Context, o elicit.Outcome) error {
	sess := storage.Session{
		ID:     r.id,
		State:  string(o.State),
		Simple: o.Simple,
		Budget: o.Budget,
		Turns:  o.Turns,
		Raw:    o.Raw,
	}
	if o.Approved() {
		doc, err := api.SaveDocument(r.store, *o.Document, r.id)
		if err != nil {
			return fmt.Errorf("storing document: %w", err)
		}
		sess.DocumentID = doc.ID
	}
	return r.store.FinishSession(sess)
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <raw-file>",
	Short: "Convert a saved free-text reply into a requirements document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if out == "" {
			out = cfg.Output.RequirementsFile
		}

		eng, err := chatEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		doc, err := elicit.Normalize(cmd.Context(), eng, cfg.Ollama.ChatModel, string(data))
		if err != nil {
			return err
		}
		if err := requirements.Save(out, doc); err != nil {
			return err
		}
		printSuccess("Requirements for %q saved to %s", doc.ProjectName, out)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().String("out", "", "output file, .json or .yaml (default output.requirements_file)")
}
