package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/furiosa-ai/mlperf-postprocess/internal/config"
	"github.com/furiosa-ai/mlperf-postprocess/internal/docker"
	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// ProjectTitle is written as the image title label.
const ProjectTitle = "mlperf-postprocess"

// RevisionSource supplies the source revision for image labels.
// *vcs.Git satisfies it.
type RevisionSource interface {
	Revision(repoPath string) (string, error)
}

// sourceURLer is implemented by revision sources that can also report the
// repository URL for the image source label.
type sourceURLer interface {
	RemoteURL(repoPath, remote string) (string, error)
}

// ImageLookup resolves a local image before it is pushed.
type ImageLookup func(ctx context.Context, ref model.ImageRef) (*model.ImageInfo, error)

// Runner plans and executes build targets.
type Runner struct {
	Config   *config.Config
	Executor Executor

	// LookupEnv reads DOCKER_TAG; nil means os.LookupEnv.
	LookupEnv LookupFunc

	// Revision is optional. When nil or failing, images are built without
	// a revision label.
	Revision RevisionSource

	// Images is optional. When set, docker-push confirms the image exists
	// locally before invoking `docker push`.
	Images ImageLookup

	// DryRun prints the plan to Out instead of executing it.
	DryRun bool
	Out    io.Writer

	Logger *slog.Logger
	Now    func() time.Time
}

// NewRunner returns a Runner that executes real processes.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		Config:   cfg,
		Executor: NewShellExecutor(),
		Out:      os.Stdout,
		Logger:   slog.New(slog.DiscardHandler),
		Now:      time.Now,
	}
}

// Result summarizes a completed (or dry-run) target.
type Result struct {
	RunID    string       `json:"runId"`
	Target   model.Target `json:"target"`
	Commands []string     `json:"commands"`
	Image    string       `json:"image,omitempty"`
	DryRun   bool         `json:"dryRun,omitempty"`
}

// Run executes target. Tag-guarded targets fail with ExitTagMissing before
// anything else happens.
func (r *Runner) Run(ctx context.Context, target model.Target) (*Result, error) {
	var ref model.ImageRef
	if target.RequiresTag() {
		tag, err := CheckDockerTag(r.LookupEnv)
		if err != nil {
			return nil, err
		}
		ref = model.ImageRef{Repository: r.Config.Docker.Image, Tag: tag}
		r.logger().Debug("docker tag guard passed", "tag", tag)
	}

	plan, err := r.plan(target, ref)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString(), Target: target, DryRun: r.DryRun}
	log := r.logger().With("run", result.RunID)
	if ref.Tag != "" {
		result.Image = ref.String()
	}
	for _, c := range plan {
		result.Commands = append(result.Commands, c.String())
	}

	if r.DryRun {
		out := r.Out
		if out == nil {
			out = os.Stdout
		}
		for _, c := range plan {
			fmt.Fprintln(out, c.String())
		}
		return result, nil
	}

	if target == model.TargetDockerPush && r.Images != nil {
		info, err := r.Images(ctx, ref)
		if err != nil {
			return nil, err
		}
		if info.Meta != nil {
			log.Info("pushing image", "image", ref.String(), "id", info.ID,
				"revision", info.Meta.Revision, "created", info.Meta.Created.Format(time.RFC3339))
		} else {
			log.Warn("image was not built by this tool, provenance labels missing", "image", ref.String(), "id", info.ID)
		}
	}

	for i, c := range plan {
		log.Info("running", "target", target.String(), "step", i+1, "of", len(plan), "cmd", c.String())
		start := time.Now()
		if err := r.Executor.Run(ctx, c); err != nil {
			return result, model.ToolFailure(fmt.Sprintf("%s: %s failed", target, c.Name), err)
		}
		log.Debug("step finished", "target", target.String(), "step", i+1, "elapsed", time.Since(start))
	}
	return result, nil
}

// Plan returns the commands target would run. Tag-guarded targets read
// DOCKER_TAG through the guard.
func (r *Runner) Plan(target model.Target) ([]Command, error) {
	var ref model.ImageRef
	if target.RequiresTag() {
		tag, err := CheckDockerTag(r.LookupEnv)
		if err != nil {
			return nil, err
		}
		ref = model.ImageRef{Repository: r.Config.Docker.Image, Tag: tag}
	}
	return r.plan(target, ref)
}

func (r *Runner) plan(target model.Target, ref model.ImageRef) ([]Command, error) {
	cfg := r.Config
	ws := cfg.Workspace

	switch target {
	case model.TargetLint:
		return []Command{
			{Name: cfg.Cargo.Binary, Args: []string{"fmt", "--all", "--", "--check"}, Dir: ws},
			{Name: cfg.Cargo.Binary, Args: []string{"clippy", "--workspace", "--all-targets", "--", "-D", cfg.Cargo.ClippyDeny}, Dir: ws},
		}, nil

	case model.TargetTest:
		args := append([]string{"test", "--release"}, cfg.Cargo.TestArgs...)
		return []Command{{Name: cfg.Cargo.Binary, Args: args, Dir: ws}}, nil

	case model.TargetCheckDockerTag:
		return nil, nil

	case model.TargetDockerBuild:
		spec := docker.BuildSpec{
			ContextDir:   ".",
			Dockerfile:   cfg.Docker.Dockerfile,
			Ref:          ref,
			SecretID:     cfg.Docker.SecretID,
			SecretSource: cfg.Docker.SecretSource,
			Labels:       docker.BuildLabels(r.imageMeta(ref)),
		}
		return []Command{{Name: "docker", Args: docker.BuildArgs(spec), Dir: ws, Env: []string{docker.BuildKitEnv}}}, nil

	case model.TargetDockerPush:
		return []Command{{Name: "docker", Args: docker.PushArgs(ref), Dir: ws}}, nil

	case model.TargetDockerWheel:
		hostDir, err := filepath.Abs(ws)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to resolve workspace %s", ws), err)
		}
		spec := docker.RunSpec{
			Image:     cfg.Wheel.BuilderImage,
			HostDir:   hostDir,
			MountPath: cfg.Wheel.MountPath,
			UID:       -1,
			GID:       -1,
			Args:      maturinBuildArgs(cfg.Wheel),
		}
		if cfg.Wheel.RunAsUser {
			spec.UID, spec.GID = os.Getuid(), os.Getgid()
		}
		return []Command{{Name: "docker", Args: docker.RunArgs(spec), Dir: ws}}, nil

	case model.TargetWheel:
		return []Command{{Name: "maturin", Args: maturinBuildArgs(cfg.Wheel), Dir: ws}}, nil
	}

	return nil, model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("unknown target %q", target))
}

func maturinBuildArgs(w config.WheelConfig) []string {
	args := []string{"build", "--release", "-i"}
	args = append(args, w.Interpreters()...)
	args = append(args, "--compatibility", w.Compatibility)
	return args
}

func (r *Runner) imageMeta(ref model.ImageRef) *model.ImageMeta {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	meta := &model.ImageMeta{
		Title:   ProjectTitle,
		Version: ref.Tag,
		Created: now(),
	}
	if r.Revision != nil {
		rev, err := r.Revision.Revision(r.Config.Workspace)
		if err != nil {
			r.logger().Warn("building without revision label", "error", err)
		} else {
			meta.Revision = rev
		}
		if src, ok := r.Revision.(sourceURLer); ok {
			if url, err := src.RemoteURL(r.Config.Workspace, "origin"); err == nil {
				meta.Source = url
			}
		}
	}
	return meta
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
