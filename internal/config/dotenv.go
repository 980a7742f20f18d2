package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// DotEnvFile is the file LoadDotEnv reads from the workspace.
const DotEnvFile = ".env"

// LoadDotEnv loads dir/.env into the process environment when the file
// exists. Variables already set in the environment win, so an exported
// DOCKER_TAG always overrides the file. It reports whether a file was read.
func LoadDotEnv(dir string) (bool, error) {
	path := filepath.Join(dir, DotEnvFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to stat %s", path), err)
	}
	if err := godotenv.Load(path); err != nil {
		return false, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to load %s", path), err)
	}
	return true, nil
}
