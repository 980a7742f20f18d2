// Package config loads the project configuration for mlperf-postprocess.
//
// The configuration file is optional. When present it may be written in
// YAML (mlperf-postprocess.yaml / .yml) or JSON with comments
// (mlperf-postprocess.json / .jsonc); JSONC comments and trailing commas
// are stripped with github.com/tidwall/jsonc before decoding. Any field
// left out keeps its default, so an empty file is a valid configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// DefaultFileNames are probed, in order, in the working directory when no
// explicit --config path is given.
var DefaultFileNames = []string{
	"mlperf-postprocess.yaml",
	"mlperf-postprocess.yml",
	"mlperf-postprocess.jsonc",
	"mlperf-postprocess.json",
}

// Config is the root of the project configuration.
type Config struct {
	// Workspace is the cargo workspace root that every toolchain command
	// runs in. Relative paths are resolved against the config file.
	Workspace string `yaml:"workspace" json:"workspace" validate:"required"`

	Cargo       CargoConfig       `yaml:"cargo" json:"cargo"`
	Docker      DockerConfig      `yaml:"docker" json:"docker"`
	Wheel       WheelConfig       `yaml:"wheel" json:"wheel"`
	Postprocess PostprocessConfig `yaml:"postprocess" json:"postprocess"`
}

// CargoConfig controls the lint and test targets.
type CargoConfig struct {
	// Binary is the cargo executable name or path.
	Binary string `yaml:"binary" json:"binary" validate:"required"`

	// ClippyDeny is the lint level passed after `--` to clippy.
	ClippyDeny string `yaml:"clippyDeny" json:"clippyDeny"`

	// TestArgs are extra arguments appended to `cargo test --release`.
	TestArgs []string `yaml:"testArgs" json:"testArgs"`
}

// DockerConfig controls the image targets.
type DockerConfig struct {
	// Image is the repository part of the image reference; the tag comes
	// from DOCKER_TAG.
	Image string `yaml:"image" json:"image" validate:"required,excludes=@"`

	// Dockerfile is relative to the workspace. Empty means docker's default.
	Dockerfile string `yaml:"dockerfile" json:"dockerfile"`

	// SecretID is the BuildKit secret identifier the Dockerfile mounts.
	SecretID string `yaml:"secretId" json:"secretId" validate:"required_with=SecretSource"`

	// SecretSource is the host file exposed as the build secret.
	SecretSource string `yaml:"secretSource" json:"secretSource" validate:"required_with=SecretID"`
}

// WheelConfig controls the wheel targets.
type WheelConfig struct {
	// PythonVersions are the interpreter versions wheels are built for.
	PythonVersions []string `yaml:"pythonVersions" json:"pythonVersions" validate:"min=1,dive,required"`

	// Compatibility is the platform tag passed to maturin.
	Compatibility string `yaml:"compatibility" json:"compatibility" validate:"required"`

	// BuilderImage is the containerized build environment for docker-wheel.
	BuilderImage string `yaml:"builderImage" json:"builderImage"`

	// MountPath is where the workspace is mounted inside the builder.
	MountPath string `yaml:"mountPath" json:"mountPath"`

	// RunAsUser runs the builder container with the caller's uid:gid so
	// the produced wheels are not owned by root.
	RunAsUser bool `yaml:"runAsUser" json:"runAsUser"`
}

// PostprocessConfig holds defaults for the eval command.
type PostprocessConfig struct {
	// Anchors is indexed [layer][anchor][w, h] in stride units. Empty means
	// the stock YOLOv5 anchors.
	Anchors [][][]float32 `yaml:"anchors" json:"anchors"`

	// Strides has one entry per detection layer.
	Strides []float32 `yaml:"strides" json:"strides" validate:"dive,gt=0"`

	ConfThreshold float32 `yaml:"confThreshold" json:"confThreshold" validate:"gte=0,lte=1"`
	IOUThreshold  float32 `yaml:"iouThreshold" json:"iouThreshold" validate:"gte=0,lte=1"`
	Epsilon       float32 `yaml:"epsilon" json:"epsilon" validate:"gte=0"`
	Agnostic      bool    `yaml:"agnostic" json:"agnostic"`

	// Labels is an optional class-name file, one name per line.
	Labels string `yaml:"labels" json:"labels"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Workspace: ".",
		Cargo: CargoConfig{
			Binary:     "cargo",
			ClippyDeny: "warnings",
		},
		Docker: DockerConfig{
			Image:        "furiosaai/mlperf-postprocess",
			SecretID:     "furiosa.conf",
			SecretSource: "/etc/apt/auth.conf.d/furiosa.conf",
		},
		Wheel: WheelConfig{
			PythonVersions: []string{"3.8", "3.9", "3.10"},
			Compatibility:  "manylinux2014",
			BuilderImage:   "ghcr.io/pyo3/maturin:latest",
			MountPath:      "/io",
		},
		Postprocess: PostprocessConfig{
			ConfThreshold: 0.25,
			IOUThreshold:  0.45,
		},
	}
}

// Load reads the configuration at path. An empty path probes
// DefaultFileNames in the current directory and falls back to Default
// when none exists. Load returns a CLIError with ExitConfigError on any
// read, parse or validation failure.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findDefault(".")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return Default(), nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read config %s", path), err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse config %s", path), err)
	}

	// Resolve the workspace relative to the file, not the caller's cwd.
	if !filepath.IsAbs(cfg.Workspace) {
		cfg.Workspace = filepath.Join(filepath.Dir(path), cfg.Workspace)
	}

	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid config %s", path), err)
	}
	return cfg, nil
}

func findDefault(dir string) (string, error) {
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(dir, name)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to stat %s", candidate), err)
		}
	}
	return "", nil
}

// Parse decodes data on top of Default. ext selects the format: ".json"
// and ".jsonc" are decoded as JSONC, anything else as YAML.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate checks field rules (validate tags) and the constraints tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				messages = append(messages, fmt.Sprintf("%s: %s", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("validation failed: %s", strings.Join(messages, ", "))
		}
		return fmt.Errorf("validation error: %w", err)
	}

	pp := c.Postprocess
	if len(pp.Anchors) != len(pp.Strides) {
		return fmt.Errorf("postprocess: %d anchor layers but %d strides", len(pp.Anchors), len(pp.Strides))
	}
	return nil
}

// Interpreters returns the maturin -i arguments, e.g. "python3.8".
func (w WheelConfig) Interpreters() []string {
	out := make([]string, len(w.PythonVersions))
	for i, v := range w.PythonVersions {
		out[i] = "python" + v
	}
	return out
}
