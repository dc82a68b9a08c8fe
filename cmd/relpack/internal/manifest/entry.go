// Package manifest records what the last release packaged, so `relpack
// status` can tell which source files changed since then.
package manifest

import "time"

// Entry is one packaged file.
type Entry struct {
	Path    string `json:"path"`
	Hash    string `json:"hash"`     // xxHash64 hex
	ModTime int64  `json:"mtime_ns"` // UnixNano
	Size    int64  `json:"size"`
}

// Release is the artifact produced by the last successful archive step.
type Release struct {
	Path      string    `json:"path"`
	Version   string    `json:"version"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}
