// Package version reads a project's release version from its
// build-configuration file.
//
// Two sources are supported:
//
//   - marker: the first line containing a marker such as `set_version(`
//     (xmake.lua style); the version is the text between the first two
//     double quotes on that line.
//   - bazel-module: the `version` attribute of the module() call in a
//     MODULE.bazel file.
//
// The version is returned verbatim. No semantic-version validation is done.
package version

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bazelbuild/buildtools/build"
)

// ErrConfigParse is returned when no version can be extracted from the
// build-configuration file.
var ErrConfigParse = errors.New("version not found in build configuration")

// DefaultMarker is the xmake call that declares a project version.
const DefaultMarker = "set_version("

// Supported source formats.
const (
	FormatMarker      = "marker"
	FormatBazelModule = "bazel-module"
)

// Options selects how Read extracts the version.
type Options struct {
	Format string // FormatMarker (default) or FormatBazelModule
	Marker string // defaults to DefaultMarker
}

// Read extracts the version from path according to opts.
func Read(path string, opts Options) (string, error) {
	switch opts.Format {
	case "", FormatMarker:
		marker := opts.Marker
		if marker == "" {
			marker = DefaultMarker
		}
		return ReadMarker(path, marker)
	case FormatBazelModule:
		return ReadBazelModule(path)
	default:
		return "", fmt.Errorf("unknown version format %q", opts.Format)
	}
}

// ReadMarker returns the quoted token on the first line of path that
// contains marker.
func ReadMarker(path, marker string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseMarker(data, marker, path)
}

// ParseMarker is ReadMarker over in-memory content. name is only used in
// error messages.
func ParseMarker(data []byte, marker, name string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.Contains(line, marker) {
			continue
		}
		v, ok := quotedToken(line)
		if !ok {
			return "", fmt.Errorf("%w: %s:%d: %q has no quoted version", ErrConfigParse, name, lineNo, strings.TrimSpace(line))
		}
		return v, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", name, err)
	}
	return "", fmt.Errorf("%w: no line containing %q in %s", ErrConfigParse, marker, name)
}

// quotedToken returns the text between the first and second '"' in line.
func quotedToken(line string) (string, bool) {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(line[start+1:], '"')
	if end <= 0 {
		return "", false
	}
	return line[start+1 : start+1+end], true
}

// ReadBazelModule returns the version attribute of the module() call in a
// MODULE.bazel file.
func ReadBazelModule(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	f, err := build.ParseModule(path, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	for _, r := range f.Rules("module") {
		if v := r.AttrString("version"); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: no module(version = ...) in %s", ErrConfigParse, path)
}
