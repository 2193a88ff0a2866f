// Package cli implements the rewind command.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

var (
	version = "dev"
	commit  = "none"
)

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c string) {
	version, commit = v, c
}

// NewRootCommand creates the root command for the rewind CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rewind",
		Short: "rewind - a Redux-style store with time-travel devtools",
		Long: `Run and inspect rewind stores.

Scenarios describe a store, the actions dispatched to it, and the devtools
trace an inspector should see. Run them as tests, or serve one to a live
inspector over WebSocket and Redis.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			configureLogging(opts, "", "")
			return nil
		},
		Version:       fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rewind:", err)
	}
	return GetExitCode(err)
}

// configureLogging installs the default slog logger on stderr. --verbose
// forces debug; otherwise level and format come from the config file,
// falling back to info and text.
func configureLogging(opts *RootOptions, level, format string) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if opts.Verbose {
		lvl = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
