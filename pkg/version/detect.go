package version

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Source is a build-configuration file the version can be read from.
type Source struct {
	File   string // relative to the project root
	Format string
}

// KnownSources lists recognized build files in detection order.
var KnownSources = []Source{
	{File: "xmake.lua", Format: FormatMarker},
	{File: "MODULE.bazel", Format: FormatBazelModule},
}

// Detect returns the first known source present in root. The result only
// depends on which files exist.
func Detect(root string) (Source, error) {
	for _, s := range KnownSources {
		info, err := os.Stat(filepath.Join(root, s.File))
		if err == nil && info.Mode().IsRegular() {
			return s, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Source{}, err
		}
	}
	return Source{}, fmt.Errorf("no build configuration found in %s: %w", root, os.ErrNotExist)
}
