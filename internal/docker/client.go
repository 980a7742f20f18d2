package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// defaultPingTimeout is the maximum duration to wait for the Docker daemon
// to answer a Ping. Docker Desktop and Colima on macOS run the daemon in a
// VM and can take a few seconds to respond after waking up.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client used by the docker push
// preflight, which confirms that <image>:<tag> exists locally before the
// docker CLI uploads it. Builds, pushes and the wheel builder container go
// through the docker CLI; this client only reads.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* handle */ }
//	defer c.Close()  // Always close to release the HTTP transport
//	if err := c.Ping(ctx); err != nil { /* Docker not running */ }
type Client struct {
	// inner is the underlying Docker SDK client. It is wrapped rather than
	// embedded so callers see only Ping/Close plus the explicit Inner
	// escape hatch used by InspectImage.
	inner *client.Client
}

// NewClient creates a Docker client with automatic socket detection.
//
// The detection strategy follows this priority order:
//  1. DOCKER_HOST environment variable (if set, used as-is, which also
//     covers tcp:// hosts and Windows named pipes)
//  2. The unix sockets returned by socketCandidates for this platform,
//     the first existing one wins
//
// Returns a model.CLIError with ExitDockerNotRunning if no Docker socket
// is found or the client cannot be created.
func NewClient() (*Client, error) {
	// Step 1: an explicit DOCKER_HOST is respected unconditionally; the SDK
	// parses the connection string.
	host := os.Getenv("DOCKER_HOST")

	// Step 2: otherwise probe the well-known socket locations.
	if host == "" {
		home, _ := os.UserHomeDir()
		paths := socketCandidates(runtime.GOOS, home, os.Getenv("XDG_RUNTIME_DIR"))
		var err error
		if host, err = firstSocket(paths); err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
		}
	}

	// API version negotiation lets the client talk to older daemons, which
	// is common on long-lived CI build hosts.
	c, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host), err)
	}
	return &Client{inner: c}, nil
}

// socketCandidates lists the unix socket paths probed on goos, most common
// first:
//   - all platforms: /var/run/docker.sock (rootful daemon, Docker Desktop)
//   - linux: $XDG_RUNTIME_DIR/docker.sock (rootless daemon)
//   - darwin: ~/.docker/run/docker.sock (Docker Desktop without the
//     privileged helper), then ~/.colima/default/docker.sock (Colima)
//
// Windows has no unix socket default; DOCKER_HOST must name the pipe there.
func socketCandidates(goos, home, runtimeDir string) []string {
	paths := []string{"/var/run/docker.sock"}
	switch goos {
	case "linux":
		if runtimeDir != "" {
			paths = append(paths, filepath.Join(runtimeDir, "docker.sock"))
		}
	case "darwin":
		if home != "" {
			paths = append(paths,
				filepath.Join(home, ".docker", "run", "docker.sock"),
				filepath.Join(home, ".colima", "default", "docker.sock"))
		}
	}
	return paths
}

// firstSocket returns the unix:// host URI of the first path that exists.
// It checks existence only; a stale socket file left by a stopped daemon
// passes here and is caught by Ping.
func firstSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v (is Docker running?)", paths)
}

// Ping verifies that the Docker daemon is reachable within
// defaultPingTimeout. The timeout is layered on top of ctx so a hung
// daemon cannot stall docker push indefinitely.
//
// Returns a model.CLIError with ExitDockerNotRunning when the daemon does
// not respond.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the resources held by the underlying SDK client.
// It is safe to call on a Client whose inner client was never created.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner returns the underlying SDK client for Engine API calls this
// wrapper does not cover, such as the ImageInspect behind InspectImage.
func (c *Client) Inner() *client.Client {
	return c.inner
}
