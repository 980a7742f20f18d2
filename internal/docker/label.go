package docker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// Label keys written on built images. The OCI annotation keys are used
// where one exists so registries and scanners pick them up.
const (
	ociPrefix = "org.opencontainers.image."

	LabelTitle    = ociPrefix + "title"
	LabelVersion  = ociPrefix + "version"
	LabelRevision = ociPrefix + "revision"
	LabelSource   = ociPrefix + "source"
	LabelCreated  = ociPrefix + "created"

	// LabelManagedBy marks images produced by this CLI.
	LabelManagedBy = "mlperf-postprocess.managed-by"
)

// ManagedByValue is the value of LabelManagedBy.
const ManagedByValue = "mlperf-postprocess"

// BuildLabels converts image provenance into a label map. Optional fields
// that are empty are left out.
func BuildLabels(meta *model.ImageMeta) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelTitle:     meta.Title,
		LabelVersion:   meta.Version,
		LabelCreated:   meta.Created.UTC().Format(time.RFC3339),
	}
	if meta.Revision != "" {
		labels[LabelRevision] = meta.Revision
	}
	if meta.Source != "" {
		labels[LabelSource] = meta.Source
	}
	return labels
}

// ParseLabels reconstructs image provenance from labels. It is the inverse
// of BuildLabels and fails when the image was not built by this CLI or a
// required label is missing.
func ParseLabels(labels map[string]string) (*model.ImageMeta, error) {
	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf("image is not managed by %s (label %s missing)", ManagedByValue, LabelManagedBy)
	}

	var missing []string
	for _, key := range []string{LabelTitle, LabelVersion, LabelCreated} {
		if labels[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required labels: %s", strings.Join(missing, ", "))
	}

	created, err := time.Parse(time.RFC3339, labels[LabelCreated])
	if err != nil {
		return nil, fmt.Errorf("invalid %s label %q: %w", LabelCreated, labels[LabelCreated], err)
	}

	return &model.ImageMeta{
		Title:    labels[LabelTitle],
		Version:  labels[LabelVersion],
		Revision: labels[LabelRevision],
		Source:   labels[LabelSource],
		Created:  created,
	}, nil
}

// labelArgs renders labels as sorted --label flags so generated command
// lines are stable.
func labelArgs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, "--label", k+"="+labels[k])
	}
	return args
}
