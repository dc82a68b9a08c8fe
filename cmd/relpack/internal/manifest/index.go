package manifest

import (
	"time"

	"github.com/albertocavalcante/relpack/pkg/util"
)

// Index is a snapshot of the packaged files, keyed by slash path.
type Index struct {
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"`
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		UpdatedAt: time.Now(),
		Entries:   make(map[string]*Entry),
	}
}

// Add adds or updates an entry.
func (idx *Index) Add(e *Entry) {
	if idx == nil || e == nil {
		return
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*Entry)
	}
	idx.Entries[e.Path] = e
}

// Get retrieves an entry by path.
func (idx *Index) Get(path string) (*Entry, bool) {
	if idx == nil || idx.Entries == nil {
		return nil, false
	}
	e, ok := idx.Entries[path]
	return e, ok
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Entries)
}

// Paths returns the indexed paths, sorted.
func (idx *Index) Paths() []string {
	if idx == nil {
		return nil
	}
	return util.SortedKeys(idx.Entries)
}

// Diff compares idx (old) against other (new). Files whose mtime and size
// are unchanged are assumed unchanged; otherwise hashes decide.
func (idx *Index) Diff(other *Index) *ChangeSet {
	cs := NewChangeSet()

	oldEntries := map[string]*Entry{}
	newEntries := map[string]*Entry{}
	if idx != nil && idx.Entries != nil {
		oldEntries = idx.Entries
	}
	if other != nil && other.Entries != nil {
		newEntries = other.Entries
	}

	for path, newEntry := range newEntries {
		oldEntry, exists := oldEntries[path]
		if !exists {
			cs.Added = append(cs.Added, path)
			continue
		}
		if oldEntry.ModTime == newEntry.ModTime && oldEntry.Size == newEntry.Size {
			continue
		}
		if oldEntry.Hash != newEntry.Hash {
			cs.Modified = append(cs.Modified, path)
		}
	}

	for path := range oldEntries {
		if _, exists := newEntries[path]; !exists {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	cs.sort()
	return cs
}
