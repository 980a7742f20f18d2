// Package cli — targets.go implements the build orchestration commands:
// lint, test, check-docker-tag, docker {build,push,wheel}, wheel and the
// generic "run <target>".
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/furiosa-ai/mlperf-postprocess/internal/build"
	"github.com/furiosa-ai/mlperf-postprocess/internal/config"
	"github.com/furiosa-ai/mlperf-postprocess/internal/docker"
	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
	"github.com/furiosa-ai/mlperf-postprocess/internal/vcs"
)

// newTargetCommand builds a no-argument command that runs one target.
func newTargetCommand(target model.Target, use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTarget(cmd.Context(), cmd.OutOrStdout(), target)
		},
	}
}

// NewLintCommand creates the "lint" command.
func NewLintCommand() *cobra.Command {
	return newTargetCommand(model.TargetLint, "lint",
		"Check formatting and run the linter over the workspace",
		`Run "cargo fmt --all -- --check" followed by clippy with warnings denied.

Examples:
  mlperf-postprocess lint
  mlperf-postprocess lint --dry-run`)
}

// NewTestCommand creates the "test" command.
func NewTestCommand() *cobra.Command {
	return newTargetCommand(model.TargetTest, "test",
		"Run the crate's test suite in release mode",
		`Run "cargo test --release" in the workspace.`)
}

// NewCheckDockerTagCommand creates the "check-docker-tag" command.
func NewCheckDockerTagCommand() *cobra.Command {
	return newTargetCommand(model.TargetCheckDockerTag, "check-docker-tag",
		"Fail unless DOCKER_TAG is set",
		`Exit non-zero with an explicit message when DOCKER_TAG is unset or not a
valid image tag. docker build and docker push run this check first.`)
}

// NewWheelCommand creates the "wheel" command.
func NewWheelCommand() *cobra.Command {
	return newTargetCommand(model.TargetWheel, "wheel",
		"Build Python wheels with the local maturin",
		`Build release wheels for every configured interpreter (default 3.8-3.10)
with the manylinux2014 compatibility tag.`)
}

// NewDockerCommand groups the container targets.
func NewDockerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docker",
		Short: "Build, push and package with Docker",
	}
	cmd.AddCommand(newTargetCommand(model.TargetDockerBuild, "build",
		"Build the image tagged with DOCKER_TAG",
		`Build <image>:$DOCKER_TAG with BuildKit, mounting the apt credentials
file as the "furiosa.conf" build secret.

Examples:
  DOCKER_TAG=1.4.0 mlperf-postprocess docker build`))
	cmd.AddCommand(newTargetCommand(model.TargetDockerPush, "push",
		"Push the image tagged with DOCKER_TAG",
		`Confirm <image>:$DOCKER_TAG exists locally, then push it with the docker CLI
so configured credential helpers are used.`))
	cmd.AddCommand(newTargetCommand(model.TargetDockerWheel, "wheel",
		"Build Python wheels inside the builder container",
		`Run maturin inside the configured builder image with the workspace mounted.`))
	return cmd
}

// NewRunCommand runs a target by its make-style name.
func NewRunCommand() *cobra.Command {
	names := make([]string, 0, len(model.AllTargets))
	for _, t := range model.AllTargets {
		names = append(names, t.String())
	}

	return &cobra.Command{
		Use:       "run <target>",
		Short:     "Run a target by name (" + strings.Join(names, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := model.ParseTarget(args[0])
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "unknown target", err)
			}
			return runTarget(cmd.Context(), cmd.OutOrStdout(), target)
		},
	}
}

// runTarget loads configuration, wires the runner and reports the result.
func runTarget(ctx context.Context, out io.Writer, target model.Target) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if loaded, err := config.LoadDotEnv(cfg.Workspace); err != nil {
		return err
	} else if loaded {
		VerboseLog("Loaded %s from %s", config.DotEnvFile, cfg.Workspace)
	}

	runner := build.NewRunner(cfg)
	runner.Logger = logger
	runner.DryRun = dryRun
	runner.Out = out
	runner.Revision = vcs.NewGit()

	if IsJSONOutput() {
		// Keep stdout clean for the JSON result.
		runner.Executor = &build.ShellExecutor{Stdout: os.Stderr, Stderr: os.Stderr}
		runner.Out = io.Discard
	}

	// The daemon is contacted only from the push preflight, which the
	// runner calls after the DOCKER_TAG guard has passed. An unset tag must
	// fail as such even when Docker is not running.
	if target == model.TargetDockerPush && !dryRun {
		runner.Images = inspectLocalImage
	}

	res, err := runner.Run(ctx, target)
	if err != nil {
		return err
	}
	return printTargetResult(out, res)
}

// inspectLocalImage connects to the Docker daemon, verifies it responds and
// looks up ref among the local images. The client lives only for this
// call; docker push itself goes through the docker CLI.
func inspectLocalImage(ctx context.Context, ref model.ImageRef) (*model.ImageInfo, error) {
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err // NewClient already returns CLIError with ExitDockerNotRunning
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return nil, err
	}
	VerboseLog("Connected to Docker daemon")

	return docker.InspectImage(ctx, cli.Inner(), ref)
}

// printTargetResult reports a finished target in text or JSON format.
func printTargetResult(w io.Writer, res *build.Result) error {
	if IsJSONOutput() {
		return printJSON(w, res)
	}
	if res.DryRun {
		return nil
	}
	switch {
	case res.Target == model.TargetCheckDockerTag:
		fmt.Fprintf(w, "DOCKER_TAG ok: %s\n", res.Image)
	case res.Image != "":
		fmt.Fprintf(w, "%s finished for %s\n", res.Target, res.Image)
	default:
		fmt.Fprintf(w, "%s finished (%d commands)\n", res.Target, len(res.Commands))
	}
	return nil
}
