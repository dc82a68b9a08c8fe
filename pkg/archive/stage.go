package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/albertocavalcante/relpack/internal/log"
)

// Stage copies the tree rooted at src into dst, leaving out every entry the
// filter excludes.
//
// An existing dst is removed first. The copy is written to a sibling
// temporary directory that is discarded if anything fails, and renamed to
// dst only once complete, so an aborted run never leaves a half-copied dst.
// Returns the number of regular files copied.
func Stage(src, dst string, filter *Filter) (int, error) {
	logger := log.Component("archive")

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve source: %w", err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if absDst == absSrc {
		return 0, fmt.Errorf("refusing to stage %s onto itself", absSrc)
	}
	if rel, err := filepath.Rel(absDst, absSrc); err == nil && rel != ".." && !startsWithParent(rel) {
		return 0, fmt.Errorf("refusing to stage into %s: it contains the source %s", absDst, absSrc)
	}

	if _, err := os.Lstat(absDst); err == nil {
		logger.Info("removing previous staging directory", "path", absDst)
		if err := os.RemoveAll(absDst); err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", absDst, err)
		}
	}

	tmp := fmt.Sprintf("%s.tmp-%d", absDst, os.Getpid())
	if err := os.RemoveAll(tmp); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", tmp, err)
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", filepath.Dir(absDst), err)
	}

	count, err := copyTree(absSrc, tmp, filter, map[string]bool{absDst: true, tmp: true})
	if err != nil {
		_ = os.RemoveAll(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, absDst); err != nil {
		_ = os.RemoveAll(tmp)
		return 0, fmt.Errorf("failed to move staged tree into place: %w", err)
	}

	logger.Info("staged source tree", "src", absSrc, "dst", absDst, "files", count)
	return count, nil
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}

// copyTree copies src into dst. skip holds absolute paths that must never
// be descended into, which keeps a staging dir inside src out of the copy.
func copyTree(src, dst string, filter *Filter, skip map[string]bool) (int, error) {
	count := 0

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if skip[path] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if filter.Excluded(filepath.ToSlash(rel)) {
			log.V(log.VerbosityDebug).Debug("excluded", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			log.Trace("copy", "path", rel)
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				return err
			}
			count++
			return nil
		default:
			log.V(log.VerbosityDebug).Debug("skipping special file", "path", rel, "mode", info.Mode().String())
			return nil
		}
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func copyFile(src, dst string, perm fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
