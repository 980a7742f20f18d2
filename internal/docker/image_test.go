package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	dockerspec "github.com/moby/docker-image-spec/specs-go/v1"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// fakeInspector returns a canned response or error.
type fakeInspector struct {
	resp    image.InspectResponse
	err     error
	gotRefs []string
}

func (f *fakeInspector) ImageInspect(_ context.Context, ref string, _ ...client.ImageInspectOption) (image.InspectResponse, error) {
	f.gotRefs = append(f.gotRefs, ref)
	return f.resp, f.err
}

type notFoundError struct{}

func (notFoundError) Error() string { return "No such image" }
func (notFoundError) NotFound()     {}

var testRef = model.ImageRef{Repository: "furiosaai/mlperf-postprocess", Tag: "1.4.0"}

func TestInspectImage(t *testing.T) {
	f := &fakeInspector{resp: image.InspectResponse{
		ID:       "sha256:feed",
		RepoTags: []string{"furiosaai/mlperf-postprocess:1.4.0"},
		Size:     1024,
		Config: &dockerspec.DockerOCIImageConfig{
			ImageConfig: ocispec.ImageConfig{Labels: BuildLabels(testMeta())},
		},
	}}

	info, err := InspectImage(context.Background(), f, testRef)
	require.NoError(t, err)

	assert.Equal(t, []string{"furiosaai/mlperf-postprocess:1.4.0"}, f.gotRefs)
	assert.Equal(t, "sha256:feed", info.ID)
	assert.Equal(t, int64(1024), info.Size)
	require.NotNil(t, info.Meta)
	assert.Equal(t, "1.4.0", info.Meta.Version)
}

func TestInspectImage_Unmanaged(t *testing.T) {
	f := &fakeInspector{resp: image.InspectResponse{ID: "sha256:beef"}}

	info, err := InspectImage(context.Background(), f, testRef)
	require.NoError(t, err)
	assert.Nil(t, info.Meta)
}

func TestInspectImage_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code model.ExitCode
	}{
		{"image missing", notFoundError{}, model.ExitImageNotFound},
		{"daemon failure", errors.New("connection reset"), model.ExitDockerNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InspectImage(context.Background(), &fakeInspector{err: tt.err}, testRef)
			require.Error(t, err)
			assert.Equal(t, tt.code, model.ExitCodeOf(err))
		})
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(BuildSpec{
		ContextDir:   ".",
		Ref:          testRef,
		SecretID:     "furiosa.conf",
		SecretSource: "/etc/apt/auth.conf.d/furiosa.conf",
		Labels:       map[string]string{LabelVersion: "1.4.0"},
	})

	assert.Equal(t, []string{
		"build",
		"--secret", "id=furiosa.conf,src=/etc/apt/auth.conf.d/furiosa.conf",
		"--label", "org.opencontainers.image.version=1.4.0",
		"-t", "furiosaai/mlperf-postprocess:1.4.0",
		".",
	}, args)
}

func TestBuildArgs_DockerfileNoSecret(t *testing.T) {
	args := BuildArgs(BuildSpec{ContextDir: "/src", Dockerfile: "docker/Dockerfile", Ref: testRef})
	assert.Equal(t, []string{"build", "-f", "docker/Dockerfile", "-t", "furiosaai/mlperf-postprocess:1.4.0", "/src"}, args)
}

func TestPushArgs(t *testing.T) {
	assert.Equal(t, []string{"push", "furiosaai/mlperf-postprocess:1.4.0"}, PushArgs(testRef))
}

func TestRunArgs(t *testing.T) {
	spec := RunSpec{
		Image:     "ghcr.io/pyo3/maturin:latest",
		HostDir:   "/home/dev/mlperf-postprocess",
		MountPath: "/io",
		UID:       -1,
		GID:       -1,
		Args:      []string{"build", "--release"},
	}
	assert.Equal(t, []string{
		"run", "--rm", "-v", "/home/dev/mlperf-postprocess:/io", "-w", "/io",
		"ghcr.io/pyo3/maturin:latest", "build", "--release",
	}, RunArgs(spec))

	spec.UID, spec.GID = 1000, 1000
	assert.Contains(t, RunArgs(spec), "1000:1000")
}
