package build

import (
	"os"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// DockerTagEnv names the variable holding the image tag.
const DockerTagEnv = "DOCKER_TAG"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// CheckDockerTag is the tag guard for image targets. It returns the tag,
// or a CLIError with ExitTagMissing when DOCKER_TAG is unset, empty or not
// a valid Docker tag.
func CheckDockerTag(lookup LookupFunc) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	tag, ok := lookup(DockerTagEnv)
	if !ok || tag == "" {
		return "", model.NewCLIError(model.ExitTagMissing,
			DockerTagEnv+" is not set (export "+DockerTagEnv+"=<tag> before building or pushing the image)")
	}
	if err := model.ValidateTag(tag); err != nil {
		return "", model.WrapCLIError(model.ExitTagMissing, DockerTagEnv+" is invalid", err)
	}
	return tag, nil
}
