package archive

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/albertocavalcante/relpack/pkg/util"
)

// DefaultExclude lists entry names that never belong in a source package:
// editor metadata, VCS metadata, the xmake cache, build output and the
// legacy publish script.
var DefaultExclude = []string{".vscode", ".git", ".xmake", "build", "publish.py"}

// StateDirName is relpack's own state directory. It is always excluded.
const StateDirName = ".relpack"

// Filter decides which entries of a source tree are left out of a package.
//
// Names match the final path element exactly, at any depth. Patterns are
// doublestar globs matched against the slash-separated path relative to
// the tree root.
type Filter struct {
	names    map[string]bool
	patterns []string
}

// NewFilter builds a filter from exact names and glob patterns.
func NewFilter(names, patterns []string) (*Filter, error) {
	f := &Filter{
		names:    make(map[string]bool, len(names)+1),
		patterns: make([]string, 0, len(patterns)),
	}
	for _, n := range names {
		if n != "" {
			f.names[n] = true
		}
	}
	f.names[StateDirName] = true

	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

// Excluded reports whether the entry at rel (slash-separated, relative to
// the tree root) is filtered out.
func (f *Filter) Excluded(rel string) bool {
	if f == nil || rel == "." || rel == "" {
		return false
	}
	if f.names[path.Base(rel)] {
		return true
	}
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Names returns the exact-name exclusions, sorted.
func (f *Filter) Names() []string {
	return util.SortedKeys(f.names)
}
