package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/albertocavalcante/relpack/pkg/archive"
)

// Status describes the project relative to the last release.
type Status struct {
	Last    *Release   `json:"last,omitempty"`
	Changes *ChangeSet `json:"changes"`
}

// Tracker records releases and reports changes since the last one.
type Tracker struct {
	store   Store
	scanner *Scanner
	root    string
}

// NewTracker creates a tracker for the project at root.
func NewTracker(root string, filter *archive.Filter) *Tracker {
	return &Tracker{
		store:   NewJSONStore(root),
		scanner: NewScanner(root, filter),
		root:    root,
	}
}

// Record snapshots the packaged file set and stores it with the artifact.
func (t *Tracker) Record(ctx context.Context, art *archive.Artifact) error {
	idx, err := t.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan project: %w", err)
	}

	st := &State{
		Index: idx,
		Release: &Release{
			Path:      art.Path,
			Version:   art.Version,
			SHA256:    art.SHA256,
			CreatedAt: time.Now(),
		},
	}
	if err := t.store.Save(st); err != nil {
		return fmt.Errorf("failed to save release state: %w", err)
	}
	return nil
}

// Status compares the current tree to the last recorded release. Only
// files whose mtime or size moved are hashed.
func (t *Tracker) Status(ctx context.Context) (*Status, error) {
	st, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	fastIdx, err := t.scanner.ScanFast(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	for _, path := range fastIdx.Paths() {
		e := fastIdx.Entries[path]
		old, ok := st.Index.Get(path)
		if !ok || (old.ModTime == e.ModTime && old.Size == e.Size) {
			e.Hash = entryHash(old)
			continue
		}
		hash, err := HashFile(filepath.Join(t.root, filepath.FromSlash(path)))
		if err != nil {
			// Unreadable now; report as modified.
			e.Hash = ""
			continue
		}
		e.Hash = hash
	}

	return &Status{Last: st.Release, Changes: st.Index.Diff(fastIdx)}, nil
}

func entryHash(e *Entry) string {
	if e == nil {
		return ""
	}
	return e.Hash
}

// HasState returns true if a release has been recorded.
func (t *Tracker) HasState() bool {
	return t.store.Exists()
}

// Reset forgets the recorded release.
func (t *Tracker) Reset() error {
	return t.store.Clear()
}
