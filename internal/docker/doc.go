// Package docker provides the Docker integration for the mlperf-postprocess
// image targets.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux including rootless daemons, macOS with Docker Desktop or
//     Colima); other platforms connect through DOCKER_HOST
//   - Image inspection through the Engine API, used to confirm an image
//     exists before it is pushed
//   - OCI image labels recording which source revision an image was
//     built from
//   - Argument construction for the docker CLI invocations (build with
//     BuildKit secrets, push, run) that the build runner executes
//
// Builds and pushes go through the docker CLI rather than the SDK: BuildKit
// secret mounts and registry credential helpers are CLI features the
// Engine API does not expose.
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
