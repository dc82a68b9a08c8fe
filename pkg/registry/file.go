package registry

import (
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/albertocavalcante/relpack/internal/log"
)

// Result reports what UpdateFile did.
type Result struct {
	Path    string
	Change  Change
	Before  []byte
	After   []byte
	Written bool
}

// Option configures UpdateFile.
type Option func(*updateOptions)

type updateOptions struct {
	marker string
	dryRun bool
}

// WithMarker overrides DefaultMarker.
func WithMarker(marker string) Option {
	return func(o *updateOptions) {
		o.marker = marker
	}
}

// WithDryRun computes the change without writing the file.
func WithDryRun(dryRun bool) Option {
	return func(o *updateOptions) {
		o.dryRun = dryRun
	}
}

// UpdateFile registers version with hash in the file at path and rewrites
// the file completely. When the file has no marker line it is not written
// and the error wraps ErrRegistryFormat.
func UpdateFile(path, version, hash string, opts ...Option) (*Result, error) {
	o := updateOptions{marker: DefaultMarker}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat registry file: %w", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	doc := Parse(before, o.marker)
	change, err := doc.Upsert(version, hash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	res := &Result{
		Path:   path,
		Change: change,
		Before: before,
		After:  doc.Bytes(),
	}

	logger := log.Component("registry")
	if o.dryRun {
		logger.Info("dry run, registry file not written", "path", path, "action", change.Action.String())
		return res, nil
	}

	if err := os.WriteFile(path, res.After, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("failed to write registry file: %w", err)
	}
	res.Written = true
	logger.Info("registry file updated", "path", path, "version", version, "action", change.Action.String(), "line", change.Index+1)
	return res, nil
}

// ReadFile parses the registry file at path.
func ReadFile(path, marker string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return Parse(data, marker), nil
}

// Diff renders a unified diff between two versions of a registry file.
func Diff(before, after []byte, name string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
}
