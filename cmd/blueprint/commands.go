package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kalambet/blueprint/internal/config"
	"github.com/kalambet/blueprint/internal/jobs"
	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/storage"
)

// --- submit ---

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue a generation run on the running server",
	Long: `Upload a requirements document to the running server and queue a
generation run for it. Progress can be followed with "blueprint runs watch".

Examples:
  blueprint submit
  blueprint submit --doc todo.yaml --out /srv/projects`,
	RunE: func(cmd *cobra.Command, args []string) error {
		docFile, _ := cmd.Flags().GetString("doc")
		out, _ := cmd.Flags().GetString("out")
		if docFile == "" {
			docFile = requirements.DefaultFile
		}

		doc, err := requirements.Load(docFile)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		run, err := submitDocument(cmd.Context(), client, doc, out)
		if err != nil {
			return err
		}
		printSuccess("Queued run %s", run)
		return nil
	},
}

// submitDocument stores doc and queues a run for it, returning the run ID.
func submitDocument(ctx context.Context, client *apiClient, doc requirements.Document, out string) (string, error) {
	var created, queued struct {
		ID string `json:"id"`
	}
	if err := client.postJSON(ctx, "/documents", doc, &created); err != nil {
		return "", fmt.Errorf("storing document: %w", err)
	}
	req := map[string]string{"document_id": created.ID, "output_dir": out}
	if err := client.postJSON(ctx, "/runs", req, &queued); err != nil {
		return "", fmt.Errorf("queueing run: %w", err)
	}
	return queued.ID, nil
}

func init() {
	submitCmd.Flags().String("doc", "", "requirements document (default "+requirements.DefaultFile+")")
	submitCmd.Flags().String("out", "", "base directory on the server (default output.dir)")
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect generation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var runs []storage.Run
		if err := client.getJSON(cmd.Context(), fmt.Sprintf("/runs?limit=%d", limit), &runs); err != nil {
			return err
		}
		printRuns(os.Stdout, runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		id := url.PathEscape(args[0])
		var run storage.Run
		if err := client.getJSON(cmd.Context(), "/runs/"+id, &run); err != nil {
			return err
		}
		var files []storage.File
		if err := client.getJSON(cmd.Context(), "/runs/"+id+"/files", &files); err != nil {
			return err
		}

		printStatus("Run", "%s", run.ID)
		printStatus("Status", "%s", run.Status)
		printStatus("Root", "%s", run.Root)
		if run.Error != "" {
			printStatus("Error", "%s", run.Error)
		}
		for _, f := range files {
			fmt.Printf("  %s  %s\n", f.Path, colorize(colorCyan, f.Task))
		}
		return nil
	},
}

var runsWatchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Follow a run until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var failed string
		err = client.watchRun(cmd.Context(), args[0], func(e jobs.Event) {
			switch e.Type {
			case jobs.EventSubscribed:
				printStep("Watching run %s", e.RunID)
			case jobs.EventFile:
				fmt.Printf("  [%d/%d] %s  %s\n", e.Index, e.Total, e.Path, colorize(colorCyan, e.Task))
			case jobs.EventCompleted:
				printSuccess("Run completed %s", e.Path)
			case jobs.EventFailed:
				failed = e.Error
			}
		})
		if err != nil {
			return err
		}
		if failed != "" {
			return fmt.Errorf("run failed: %s", failed)
		}
		return nil
	},
}

func printRuns(w io.Writer, runs []storage.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tROOT\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Status, r.Root, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsWatchCmd)
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recorded elicitation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var sessions []storage.Session
		if err := client.getJSON(cmd.Context(), fmt.Sprintf("/sessions?limit=%d", limit), &sessions); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATE\tTURNS\tREQUEST")
		for _, s := range sessions {
			fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", s.ID, s.State, s.Turns, s.Budget, truncate(s.Request, 50))
		}
		return tw.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session transcript as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var sess json.RawMessage
		if err := client.getJSON(cmd.Context(), "/sessions/"+url.PathEscape(args[0]), &sess); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	sessionsListCmd.Flags().Int("limit", 20, "maximum number of sessions")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tENV")
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Key, k.Value, k.EnvVar)
		}
		return tw.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		if config.IsSecret(key) {
			printSuccess("Stored %s in the secret store", key)
			return nil
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
