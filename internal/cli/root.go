// Package cli implements the cobra-based CLI commands for mlperf-postprocess.
//
// The build targets (lint, test, docker, wheel) live in targets.go and the
// postprocessing command in eval.go. This file defines the root command,
// the global flags and the error/exit-code handling shared by all of them.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// Global flag variables shared across all subcommands.
// They are bound to cobra persistent flags on the root command, so every
// subcommand sees them without declaring its own copy.
var (
	// jsonOutput controls whether results and errors are printed as JSON.
	// In JSON mode stdout carries only the result document; child process
	// output and logs go to stderr so the document stays parseable.
	jsonOutput bool

	// verbose lowers the log level from info to debug, which adds the
	// VerboseLog records (config discovery, daemon connection, loaded
	// tensors) and per-step timings from the build runner.
	verbose bool

	// configPath points at the project configuration file. Empty means
	// probing the working directory for config.DefaultFileNames and
	// falling back to the built-in defaults when none exists.
	configPath string

	// dryRun makes build targets print the commands they would run instead
	// of running them. The DOCKER_TAG guard still applies, so a dry run of
	// docker build fails the same way a real one would.
	dryRun bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// logger is the process-wide structured logger. It starts as an info-level
// stderr handler and is rebuilt in PersistentPreRun once --verbose is known.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags. The build targets and eval are registered as
// subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mlperf-postprocess",
		Short: "Build tooling and YOLOv5 postprocessing for mlperf-postprocess",
		Long: `mlperf-postprocess drives the project's build targets (lint, test,
container image and Python wheel packaging) and runs the YOLOv5 detection
postprocessor (box decoding + NMS) on raw model outputs.

Image targets require DOCKER_TAG to be set, either exported or in a .env
file in the workspace.`,

		// SilenceUsage prevents cobra from printing usage on every error;
		// a failed cargo or docker step is not a usage mistake.
		SilenceUsage: true,

		// SilenceErrors leaves error output to Execute, which formats it
		// as text or JSON depending on --json.
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// Flags are parsed by the time PersistentPreRun runs, so this is
		// the first point where the log level is known.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(os.Stderr, verbose)
		},
	}

	// PersistentFlags are inherited by all subcommands.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the project config (default: mlperf-postprocess.{yaml,yml,jsonc,json})")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the commands a target would run without running them")

	// Register subcommands. Targets are defined in targets.go, eval in
	// eval.go.
	rootCmd.AddCommand(NewLintCommand())
	rootCmd.AddCommand(NewTestCommand())
	rootCmd.AddCommand(NewCheckDockerTagCommand())
	rootCmd.AddCommand(NewDockerCommand())
	rootCmd.AddCommand(NewWheelCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewEvalCommand())

	return rootCmd
}

// newLogger builds the stderr text logger; verbose enables debug records.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command and handles any returned error.
//
// A model.CLIError carries its own exit code (for example ExitTagMissing
// when DOCKER_TAG is unset, or the child's status when cargo or docker
// fails); any other error exits with ExitGeneralError. The error is
// printed to stderr as text or JSON before the process exits.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(os.Stderr, cliErr.Message, cliErr.Err)
		} else {
			printError(os.Stderr, err.Error(), nil)
		}
		os.Exit(int(model.ExitCodeOf(err)))
	}
}

// printError writes the error as text or JSON depending on --json.
// Errors go to stderr even in JSON mode; stdout carries results only.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]any{"message": message}
		if underlying != nil {
			errObj["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]any{"error": errObj}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog emits a debug record; it is only shown with --verbose.
func VerboseLog(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
