package docker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// BuildKitEnv is the environment needed for `docker build --secret`.
const BuildKitEnv = "DOCKER_BUILDKIT=1"

// ImageInspector is the subset of the Engine API used by InspectImage.
// *client.Client satisfies it.
type ImageInspector interface {
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
}

// InspectImage looks up a local image by reference. A missing image yields
// a CLIError with ExitImageNotFound; other API failures are reported as
// ExitDockerNotRunning.
func InspectImage(ctx context.Context, api ImageInspector, ref model.ImageRef) (*model.ImageInfo, error) {
	resp, err := api.ImageInspect(ctx, ref.String())
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, model.WrapCLIError(model.ExitImageNotFound,
				fmt.Sprintf("image %s not found locally (run docker-build first)", ref), err)
		}
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to inspect image %s", ref), err)
	}

	info := &model.ImageInfo{
		ID:       resp.ID,
		RepoTags: resp.RepoTags,
		Size:     resp.Size,
	}
	if resp.Config != nil {
		info.Labels = resp.Config.Labels
	}
	if meta, err := ParseLabels(info.Labels); err == nil {
		info.Meta = meta
	}
	return info, nil
}

// BuildSpec describes one `docker build` invocation.
type BuildSpec struct {
	ContextDir   string
	Dockerfile   string
	Ref          model.ImageRef
	SecretID     string
	SecretSource string
	Labels       map[string]string
}

// BuildArgs returns the docker CLI arguments for spec. The secret is
// mounted as `--secret id=<id>,src=<source>`.
func BuildArgs(spec BuildSpec) []string {
	args := []string{"build"}
	if spec.SecretID != "" {
		args = append(args, "--secret", "id="+spec.SecretID+",src="+spec.SecretSource)
	}
	if spec.Dockerfile != "" {
		args = append(args, "-f", spec.Dockerfile)
	}
	args = append(args, labelArgs(spec.Labels)...)
	args = append(args, "-t", spec.Ref.String(), spec.ContextDir)
	return args
}

// PushArgs returns the docker CLI arguments to publish ref.
func PushArgs(ref model.ImageRef) []string {
	return []string{"push", ref.String()}
}

// RunSpec describes a throwaway `docker run --rm` with the workspace
// bind-mounted.
type RunSpec struct {
	Image     string
	HostDir   string
	MountPath string

	// UID and GID, when non-negative, run the container as that user so
	// build outputs on the bind mount are owned by the caller.
	UID int
	GID int

	Args []string
}

// RunArgs returns the docker CLI arguments for spec.
func RunArgs(spec RunSpec) []string {
	args := []string{"run", "--rm", "-v", spec.HostDir + ":" + spec.MountPath, "-w", spec.MountPath}
	if spec.UID >= 0 && spec.GID >= 0 {
		args = append(args, "--user", strconv.Itoa(spec.UID)+":"+strconv.Itoa(spec.GID))
	}
	args = append(args, spec.Image)
	args = append(args, spec.Args...)
	return args
}
