// Package build runs the project's build orchestration targets: lint,
// test, docker-build, docker-push, docker-wheel and wheel.
//
// Each target is planned as an ordered list of external commands and
// executed one at a time through an Executor. The first failing command
// stops the target and its exit status becomes the CLI's exit status.
// Image targets are guarded by CheckDockerTag, which fails before any
// docker command runs when DOCKER_TAG is not set.
package build
