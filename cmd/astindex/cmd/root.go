// Package cmd provides the CLI commands for astindex.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/astlog"
	"github.com/weftcode/astindex/pkg/version"
)

// Debug logging flag, grounded on the teacher's root.go persistent
// debug flag.
var (
	debugMode     bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the astindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "astindex",
		Short: "AST-aware semantic code index",
		Long: `astindex parses a workspace's source into a typed AST, annotates
each node with a signature and summary, embeds those annotations, and
serves nearest-neighbor search over the result.

Run 'astindex init' in a project directory to get started, then
'astindex watch' to keep the index current as files change.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("astindex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to the astindex log directory")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newAnnotateCmd())
	cmd.AddCommand(newEmbedCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newRebuildIndexCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging configures slog for the run, switching to debug-level
// file logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := astlog.DefaultConfig()
	if debugMode {
		logCfg = astlog.DebugConfig()
	}

	logger, cleanup, err := astlog.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// stopLogging flushes and closes the logger opened by startLogging.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
