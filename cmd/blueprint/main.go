package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Turn an application request into requirements, a project skeleton and generated files",
	Long: `blueprint elicits a structured requirements document through a
turn-bounded dialogue with a language model, plans a project layout from it,
routes every implementation task to a single file, and generates those files.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
		setupLogging(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")

	rootCmd.AddCommand(elicitCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(scaffoldCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging installs the default slog handler. An empty level keeps the
// current handler so config can set it later.
func setupLogging(level string) {
	if level == "" {
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)})))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
