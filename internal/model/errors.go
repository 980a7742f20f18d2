package model

import (
	"errors"
	"fmt"
	"os/exec"
)

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred. It is also
	// the fallback when an external tool fails without a usable exit status.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the project configuration could not be
	// loaded or failed validation.
	ExitConfigError ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitTagMissing indicates DOCKER_TAG was not set (or invalid) for a
	// target that publishes or builds an image.
	ExitTagMissing ExitCode = 4

	// ExitGitError indicates a git query failed.
	ExitGitError ExitCode = 5

	// ExitImageNotFound indicates the image to push does not exist locally.
	ExitImageNotFound ExitCode = 6

	// ExitInvalidInput indicates postprocessor inputs were malformed.
	ExitInvalidInput ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ToolFailure wraps the failure of an external command. When the command
// ran and exited non-zero, its own exit status becomes the CLI exit code,
// so `mlperf-postprocess test` exits exactly like `cargo test` would.
func ToolFailure(message string, err error) *CLIError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return WrapCLIError(ExitCode(code), message, err)
		}
	}
	return WrapCLIError(ExitGeneralError, message, err)
}

// ExitCodeOf returns the exit code carried by err, ExitGeneralError for
// any other non-nil error and ExitSuccess for nil.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}
