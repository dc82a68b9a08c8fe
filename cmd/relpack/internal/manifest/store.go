package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/albertocavalcante/relpack/pkg/archive"
)

const (
	// StateVersion is the current state file format.
	StateVersion = 1

	stateFile  = "state.json"
	ignoreFile = ".gitignore"
)

// ignoreContent keeps the state directory out of `git status` while
// leaving a config.toml placed next to it visible.
const ignoreContent = "*\n!config.toml\n"

// State is the persisted record of the last release.
type State struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Release   *Release  `json:"release,omitempty"`
	Index     *Index    `json:"index"`
}

// Store persists State.
type Store interface {
	Load() (*State, error)
	Save(st *State) error
	Exists() bool
	Clear() error
}

// JSONStore keeps State in <root>/.relpack/state.json.
type JSONStore struct {
	dir  string
	path string
}

// NewJSONStore creates a store for the project at root.
func NewJSONStore(root string) *JSONStore {
	dir := filepath.Join(root, archive.StateDirName)
	return &JSONStore{
		dir:  dir,
		path: filepath.Join(dir, stateFile),
	}
}

// Load reads the state. A missing file yields an empty state.
func (s *JSONStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &State{Version: StateVersion, Index: NewIndex()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if st.Version > StateVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", st.Version, StateVersion)
	}
	if st.Index == nil {
		st.Index = NewIndex()
	}
	if st.Index.Entries == nil {
		st.Index.Entries = make(map[string]*Entry)
	}
	return &st, nil
}

// Save writes the state atomically.
func (s *JSONStore) Save(st *State) error {
	if st == nil {
		return fmt.Errorf("cannot save nil state")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := s.writeIgnore(); err != nil {
		return err
	}

	st.UpdatedAt = time.Now()
	st.Version = StateVersion

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

// writeIgnore creates the state directory's .gitignore unless the user
// already has one.
func (s *JSONStore) writeIgnore() error {
	path := filepath.Join(s.dir, ignoreFile)
	if _, err := os.Lstat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(ignoreContent), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Exists returns true if the state file exists.
func (s *JSONStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Clear removes the state file. The directory may also hold config.
func (s *JSONStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
