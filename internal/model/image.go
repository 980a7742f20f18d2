package model

import "time"

// ImageMeta is the provenance recorded on images built by the CLI.
type ImageMeta struct {
	Title    string    `json:"title"`
	Version  string    `json:"version"`
	Revision string    `json:"revision,omitempty"`
	Source   string    `json:"source,omitempty"`
	Created  time.Time `json:"created"`
}

// ImageInfo describes a local image as reported by the Docker daemon.
type ImageInfo struct {
	ID       string            `json:"id"`
	RepoTags []string          `json:"repoTags,omitempty"`
	Size     int64             `json:"size"`
	Labels   map[string]string `json:"labels,omitempty"`

	// Meta is nil when the image lacks the labels the CLI writes.
	Meta *ImageMeta `json:"meta,omitempty"`
}
