package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// envMap adapts a map to LookupFunc.
func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestCheckDockerTag(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantTag string
		wantErr string
	}{
		{name: "set", env: map[string]string{"DOCKER_TAG": "1.4.0"}, wantTag: "1.4.0"},
		{name: "unset", env: map[string]string{}, wantErr: "DOCKER_TAG is not set"},
		{name: "empty", env: map[string]string{"DOCKER_TAG": ""}, wantErr: "DOCKER_TAG is not set"},
		{name: "invalid", env: map[string]string{"DOCKER_TAG": "bad tag"}, wantErr: "DOCKER_TAG is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, err := CheckDockerTag(envMap(tt.env))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, model.ExitTagMissing, model.ExitCodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTag, tag)
		})
	}
}

// TestCheckDockerTag_ProcessEnv checks the os.LookupEnv default.
func TestCheckDockerTag_ProcessEnv(t *testing.T) {
	t.Setenv(DockerTagEnv, "from-env")

	tag, err := CheckDockerTag(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", tag)
}
