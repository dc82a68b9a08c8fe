package manifest

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/albertocavalcante/relpack/pkg/archive"
)

// Scanner builds an Index of the files a release would package.
type Scanner struct {
	root   string
	filter *archive.Filter
}

// NewScanner creates a scanner for root using the archive exclusion
// filter, so the index covers exactly the staged file set.
func NewScanner(root string, filter *archive.Filter) *Scanner {
	return &Scanner{root: root, filter: filter}
}

// Scan walks the tree and hashes every included regular file.
func (s *Scanner) Scan(ctx context.Context) (*Index, error) {
	return s.walk(ctx, true)
}

// ScanFast records mtime and size only.
func (s *Scanner) ScanFast(ctx context.Context) (*Index, error) {
	return s.walk(ctx, false)
}

func (s *Scanner) walk(ctx context.Context, hash bool) (*Index, error) {
	idx := NewIndex()

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if s.filter.Excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entry := &Entry{
			Path:    rel,
			ModTime: info.ModTime().UnixNano(),
			Size:    info.Size(),
		}
		if hash {
			if entry.Hash, err = HashFile(path); err != nil {
				return err
			}
		}
		idx.Add(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}
