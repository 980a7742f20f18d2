package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

func testMeta() *model.ImageMeta {
	return &model.ImageMeta{
		Title:    "mlperf-postprocess",
		Version:  "1.4.0",
		Revision: "0123456789abcdef",
		Created:  time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}
}

// TestBuildLabels verifies the label map written on built images.
func TestBuildLabels(t *testing.T) {
	labels := BuildLabels(testMeta())

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])
	assert.Equal(t, "mlperf-postprocess", labels[LabelTitle])
	assert.Equal(t, "1.4.0", labels[LabelVersion])
	assert.Equal(t, "0123456789abcdef", labels[LabelRevision])
	assert.Equal(t, "2026-10-19T09:30:00Z", labels[LabelCreated])
	_, hasSource := labels[LabelSource]
	assert.False(t, hasSource, "empty optional fields are omitted")
	assert.Len(t, labels, 5)
}

func TestParseLabels_RoundTrip(t *testing.T) {
	meta := testMeta()
	meta.Source = "https://github.com/furiosa-ai/mlperf-postprocess"

	parsed, err := ParseLabels(BuildLabels(meta))
	require.NoError(t, err)
	assert.Equal(t, meta, parsed)
}

func TestParseLabels_Errors(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string]string
		want   string
	}{
		{
			name:   "not managed",
			labels: map[string]string{LabelTitle: "x"},
			want:   "not managed",
		},
		{
			name:   "missing version",
			labels: map[string]string{LabelManagedBy: ManagedByValue, LabelTitle: "x", LabelCreated: "2026-10-19T09:30:00Z"},
			want:   LabelVersion,
		},
		{
			name:   "bad timestamp",
			labels: map[string]string{LabelManagedBy: ManagedByValue, LabelTitle: "x", LabelVersion: "1", LabelCreated: "yesterday"},
			want:   "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLabels(tt.labels)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLabelArgs_Sorted(t *testing.T) {
	args := labelArgs(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, []string{"--label", "a=1", "--label", "b=2"}, args)
}
