// Package main is the entry point for the mlperf-postprocess CLI.
//
// The binary drives the project's build targets and runs the YOLOv5
// postprocessor; all commands live in internal/cli.
//
// version, commit and date are injected via ldflags at release time.
package main

import (
	"github.com/furiosa-ai/mlperf-postprocess/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
