// Package vcs answers the few git questions the build targets need: the
// revision an image is built from and whether the tree has local changes.
//
// It shells out to the git CLI (like the cargo and docker invocations
// elsewhere) so the behaviour matches what the developer sees in their
// terminal, including worktrees and safe.directory settings.
package vcs

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// Git runs read-only git queries against one repository.
type Git struct {
	// Binary is the git executable; empty means "git" from PATH.
	Binary string
}

// NewGit returns a Git using the git binary on PATH.
func NewGit() *Git {
	return &Git{}
}

// HeadCommit returns the full SHA of HEAD in repoPath.
func (g *Git) HeadCommit(repoPath string) (string, error) {
	out, err := g.run(repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsDirty reports whether repoPath has staged, unstaged or untracked
// changes.
func (g *Git) IsDirty(repoPath string) (bool, error) {
	out, err := g.run(repoPath, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Revision returns HEAD with a "-dirty" suffix when the tree has changes,
// the form used for the image revision label.
func (g *Git) Revision(repoPath string) (string, error) {
	head, err := g.HeadCommit(repoPath)
	if err != nil {
		return "", err
	}
	dirty, err := g.IsDirty(repoPath)
	if err != nil {
		return "", err
	}
	if dirty {
		return head + "-dirty", nil
	}
	return head, nil
}

// RemoteURL returns the fetch URL of the named remote.
func (g *Git) RemoteURL(repoPath, remote string) (string, error) {
	out, err := g.run(repoPath, "remote", "get-url", remote)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// run executes git with -C repoPath so the process working directory is
// never changed. Failures carry ExitGitError and git's stderr.
func (g *Git) run(repoPath string, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	fullArgs := append([]string{"-C", repoPath}, args...)

	// #nosec G204 -- args are constructed internally
	cmd := exec.Command(bin, fullArgs...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if s := strings.TrimSpace(stderr.String()); s != "" {
			message = fmt.Sprintf("%s: %s", message, s)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}
	return stdout.String(), nil
}
