package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Target identifies one build orchestration target. The set mirrors the
// project's make targets, so `make docker-build` and
// `mlperf-postprocess docker build` run the same command sequence.
type Target string

const (
	// TargetLint runs the formatter check and the linter over the workspace.
	TargetLint Target = "lint"

	// TargetTest runs the crate's test suite in release mode.
	TargetTest Target = "test"

	// TargetCheckDockerTag only evaluates the DOCKER_TAG guard.
	TargetCheckDockerTag Target = "check-docker-tag"

	// TargetDockerBuild builds the container image tagged with DOCKER_TAG.
	TargetDockerBuild Target = "docker-build"

	// TargetDockerPush publishes the image tagged with DOCKER_TAG.
	TargetDockerPush Target = "docker-push"

	// TargetDockerWheel builds the Python wheels inside a builder container.
	TargetDockerWheel Target = "docker-wheel"

	// TargetWheel builds the Python wheels with the local toolchain.
	TargetWheel Target = "wheel"
)

// AllTargets lists every target in the order they appear in help output.
var AllTargets = []Target{
	TargetLint,
	TargetTest,
	TargetCheckDockerTag,
	TargetDockerBuild,
	TargetDockerPush,
	TargetDockerWheel,
	TargetWheel,
}

// String returns the string representation of Target.
func (t Target) String() string {
	return string(t)
}

// IsValid checks whether the Target value is one of the predefined targets.
func (t Target) IsValid() bool {
	for _, known := range AllTargets {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresTag reports whether the target must pass the DOCKER_TAG guard
// before any command runs.
func (t Target) RequiresTag() bool {
	return t == TargetCheckDockerTag || t == TargetDockerBuild || t == TargetDockerPush
}

// ParseTarget converts a string to a Target. Matching is case-insensitive.
func ParseTarget(s string) (Target, error) {
	target := Target(strings.ToLower(s))
	if !target.IsValid() {
		names := make([]string, 0, len(AllTargets))
		for _, t := range AllTargets {
			names = append(names, t.String())
		}
		return "", fmt.Errorf("invalid target: %q (valid: %s)", s, strings.Join(names, ", "))
	}
	return target, nil
}

// tagRegex follows the Docker reference grammar for tags: up to 128
// characters of [A-Za-z0-9_.-], not starting with '.' or '-'.
var tagRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)

// ValidateTag checks that tag is usable as a Docker image tag.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("docker tag must not be empty")
	}
	if !tagRegex.MatchString(tag) {
		return fmt.Errorf("invalid docker tag %q: must match %s", tag, tagRegex.String())
	}
	return nil
}

// ImageRef is a repository plus tag, e.g. "furiosaai/mlperf-postprocess:1.2.0".
type ImageRef struct {
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
}

// String renders the reference in repository:tag form.
func (r ImageRef) String() string {
	if r.Tag == "" {
		return r.Repository
	}
	return r.Repository + ":" + r.Tag
}
