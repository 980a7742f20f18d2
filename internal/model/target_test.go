package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseTarget verifies string-to-target conversion, including case
// normalization and error cases.
func TestParseTarget(t *testing.T) {
	tests := []struct {
		input    string
		expected Target
		hasError bool
	}{
		{"lint", TargetLint, false},
		{"test", TargetTest, false},
		{"check-docker-tag", TargetCheckDockerTag, false},
		{"docker-build", TargetDockerBuild, false},
		{"docker-push", TargetDockerPush, false},
		{"docker-wheel", TargetDockerWheel, false},
		{"wheel", TargetWheel, false},
		{"DOCKER-BUILD", TargetDockerBuild, false}, // case insensitive
		{"deploy", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseTarget(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestTarget_RequiresTag checks that only image-producing targets are guarded.
func TestTarget_RequiresTag(t *testing.T) {
	assert.True(t, TargetCheckDockerTag.RequiresTag())
	assert.True(t, TargetDockerBuild.RequiresTag())
	assert.True(t, TargetDockerPush.RequiresTag())
	assert.False(t, TargetLint.RequiresTag())
	assert.False(t, TargetTest.RequiresTag())
	assert.False(t, TargetDockerWheel.RequiresTag())
	assert.False(t, TargetWheel.RequiresTag())
}

func TestValidateTag(t *testing.T) {
	tests := []struct {
		tag      string
		hasError bool
	}{
		{"latest", false},
		{"1.2.0", false},
		{"v1.2.0-rc1", false},
		{"nightly_20261019", false},
		{"", true},
		{".hidden", true},
		{"-dash", true},
		{"has space", true},
		{"has:colon", true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			err := ValidateTag(tt.tag)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestImageRef_String(t *testing.T) {
	assert.Equal(t, "furiosaai/mlperf-postprocess:1.0", ImageRef{Repository: "furiosaai/mlperf-postprocess", Tag: "1.0"}.String())
	assert.Equal(t, "furiosaai/mlperf-postprocess", ImageRef{Repository: "furiosaai/mlperf-postprocess"}.String())
}
