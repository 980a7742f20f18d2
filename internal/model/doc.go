// Package model defines the domain types and value objects for the
// mlperf-postprocess CLI.
//
// This package contains pure data structures with no external dependencies.
// It covers two areas: the build targets the CLI orchestrates (Target,
// ImageRef) and the detection results produced by the postprocessors
// (BoundingBox, DetectionResult, DetectionResults).
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
