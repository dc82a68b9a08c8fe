package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/albertocavalcante/relpack/internal/log"
)

// reproducibleTime is the entry timestamp used for reproducible archives
// (the earliest time the zip format can represent).
var reproducibleTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// ZipOptions configures CreateZip.
type ZipOptions struct {
	// Reproducible pins every entry timestamp so identical trees always
	// produce identical archive bytes.
	Reproducible bool
}

// CreateZip compresses the contents of dir into zipPath. Entry names are
// relative to dir. The archive is written to a temporary file and renamed
// into place, so a failed run never leaves a truncated zipPath behind.
func CreateZip(dir, zipPath string, opts ZipOptions) error {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(zipPath), err)
	}

	tmp := zipPath + ".tmp"
	if err := writeZip(dir, tmp, opts); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, zipPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

func writeZip(dir, path string, opts ZipOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	entries := 0

	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		// Follow symlinks so the archive carries file content, not links.
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}
		if info.IsDir() && d.Type()&fs.ModeSymlink != 0 {
			log.V(log.VerbosityDebug).Debug("skipping symlinked directory", "path", rel)
			return nil
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if opts.Reproducible {
			hdr.Modified = reproducibleTime
		}

		if info.IsDir() {
			hdr.Name += "/"
			hdr.Method = zip.Store
			_, err := zw.CreateHeader(hdr)
			return err
		}

		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if err := copyInto(w, p); err != nil {
			return err
		}
		entries++
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		return walkErr
	}

	if err := zw.Close(); err != nil {
		return err
	}
	log.Component("archive").Debug("wrote zip", "path", path, "files", entries)
	return nil
}

func copyInto(w io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	_, err = io.Copy(w, in)
	return err
}
