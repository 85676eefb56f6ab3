package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/blueprint/internal/api"
	"github.com/kalambet/blueprint/internal/config"
	"github.com/kalambet/blueprint/internal/jobs"
	"github.com/kalambet/blueprint/internal/ollama"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and generation worker (foreground)",
	Long: `Run the HTTP API and the background generation worker. With --mcp the
MCP server is also served over stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running blueprint server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show blueprint system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
}

// pidFile records the PID of the foreground server in the data directory.
type pidFile string

func pidFileIn(dataDir string) pidFile {
	return pidFile(filepath.Join(dataDir, "blueprint.pid"))
}

func (p pidFile) write() error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o755); err != nil {
		return err
	}
	return os.WriteFile(string(p), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func (p pidFile) read() (int, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("corrupt PID file %s: %w", p, err)
	}
	return pid, nil
}

func (p pidFile) remove() { os.Remove(string(p)) }

func serverURL(cfg config.Config) string {
	return fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
}

func runServer(withMCP bool) error {
	// stdout belongs to the MCP transport when --mcp is set.
	fmt.Fprintf(messages, "blueprint version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pids := pidFileIn(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(serverURL(cfg) + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := pids.read(); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := pids.write(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer pids.remove()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	synth, err := synthesizer(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if cfg.Server.APIToken == "" {
		slog.Warn("no API token configured, management endpoints are unauthenticated")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	events := jobs.NewHub()
	handler := api.NewHandler(api.Deps{
		Store:     store,
		Token:     cfg.Server.APIToken,
		OutputDir: cfg.Output.Dir,
		Events:    events,
	})
	srv := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	worker := jobs.NewWorker(store, synth, 500*time.Millisecond).WithEvents(events)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Store: store, Version: version})
		stdio := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdio.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pids := pidFileIn(cfg.Storage.DataDir)
	pid, err := pids.read()
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blueprint is not running (no PID file at %s)", pids)
	}
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		pids.remove()
		if errors.Is(err, os.ErrProcessDone) {
			printWarning("blueprint (PID %d) was not running; removed stale PID file", pid)
			return nil
		}
		return fmt.Errorf("could not stop blueprint (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to blueprint (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL(cfg) + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if v, err := ollama.New(cfg.Ollama.BaseURL).Version(context.Background()); err != nil {
		printStatus("Ollama", "not running")
	} else {
		printStatus("Ollama", "%s running at %s", v, cfg.Ollama.BaseURL)
	}

	printStatus("Chat model", "%s", cfg.Ollama.ChatModel)
	printStatus("Synthesis", "%s (%s)", cfg.SynthModel(), cfg.Synth.Backend)

	if running {
		c := &apiClient{baseURL: serverURL(cfg), token: cfg.Server.APIToken, httpClient: client}
		ctx := context.Background()
		for _, item := range []struct{ label, path string }{
			{"Documents", "/documents?limit=100"},
			{"Runs", "/runs?limit=100"},
			{"Sessions", "/sessions?limit=100"},
		} {
			var list []json.RawMessage
			if err := c.getJSON(ctx, item.path, &list); err == nil {
				printStatus(item.label, "%s", countLabel(len(list), 100))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
