// Package cli implements the datadesk command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/datadesk/internal/config"
	"github.com/ashureev/datadesk/internal/engine"
	"github.com/ashureev/datadesk/internal/knowledge"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries state shared by all subcommands once the root has run.
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the datadesk command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "datadesk",
		Short: "In-app helper for the data analysis platform",
		Long: `datadesk answers "how do I..." questions about the data analysis platform.
It matches questions against a small keyword knowledge base and replies with
step-by-step instructions, over HTTP, WebSocket, MCP or an interactive prompt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", config.DefaultFile, "config file path")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newServeCommand(a),
		newAskCommand(a),
		newChatCommand(a),
		newIntentsCommand(a),
		newMCPCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) init(cmd *cobra.Command) error {
	envErr := godotenv.Load()

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg

	// Only the server logs to stdout; everything else keeps stdout for output.
	var w io.Writer = cmd.ErrOrStderr()
	if cmd.Name() == "serve" {
		w = cmd.OutOrStdout()
	}
	a.logger = newLogger(w, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(a.logger)

	if envErr != nil {
		a.logger.Debug("No .env file found, using environment variables")
	}
	return nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// knowledgeBase loads the configured knowledge file, or the compiled-in table.
func (a *app) knowledgeBase() (*knowledge.Base, error) {
	if a.cfg.KnowledgeFile == "" {
		return knowledge.Default(), nil
	}
	kb, err := knowledge.Load(a.cfg.KnowledgeFile)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Knowledge base loaded", "path", a.cfg.KnowledgeFile, "intents", kb.Len())
	return kb, nil
}

func (a *app) engine() (*engine.Engine, *knowledge.Base, error) {
	kb, err := a.knowledgeBase()
	if err != nil {
		return nil, nil, err
	}
	return engine.New(kb), kb, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of datadesk",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datadesk %s\n", Version)
		},
	}
}
