package build

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Env holds KEY=VALUE pairs added on top of the inherited environment.
	Env []string
}

// String renders the command as it would be typed in a shell, with
// arguments quoted only when needed.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Env)+len(c.Args)+1)
	parts = append(parts, c.Env...)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'`$\\|&;<>()*?") {
		return strconv.Quote(s)
	}
	return s
}

// Executor runs commands. Implementations must return the process error
// unchanged so exit statuses can be propagated.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ShellExecutor runs commands as child processes, streaming their output.
type ShellExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellExecutor streams child output to the process's stdout/stderr.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts cmd and waits for it. Cancelling ctx kills the process.
func (e *ShellExecutor) Run(ctx context.Context, c Command) error {
	// #nosec G204 -- commands are planned internally from configuration
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = nil
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd.Run()
}
