// Package registry registers released versions in a downstream
// package-definition file (an xmake-repo style xmake.lua).
//
// The file is treated as ordered text. Lines that register a version look
// like
//
//	    add_versions("1.2.3", "<sha256>")
//
// and Upsert touches at most one line: it replaces the entry for an
// existing version, or inserts a new entry directly above the first line
// that mentions the marker. Every other line is kept byte for byte.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRegistryFormat is returned when the file has no line containing the
// version marker, so there is no anchor to insert at.
var ErrRegistryFormat = errors.New("registry file has no version marker")

// DefaultMarker is the xmake call that registers a package version.
const DefaultMarker = "add_versions"

// EntryIndent is the indentation of generated entry lines.
const EntryIndent = "    "

// Entry is a registered (version, hash) pair.
type Entry struct {
	Version string `json:"version" yaml:"version"`
	Hash    string `json:"hash" yaml:"hash"`
}

// Line is one line of the file. Raw includes the line terminator, if any.
// Entry is set when the line parses as a version entry.
type Line struct {
	Raw   string
	Entry *Entry
}

// Action says how Upsert changed a document.
type Action int

const (
	ActionReplaced Action = iota + 1
	ActionInserted
)

func (a Action) String() string {
	switch a {
	case ActionReplaced:
		return "replaced"
	case ActionInserted:
		return "inserted"
	default:
		return "none"
	}
}

// MarshalText renders the action by name in JSON and YAML output.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Change describes the single line Upsert touched.
type Change struct {
	Action Action `json:"action" yaml:"action"`
	Index  int    `json:"line" yaml:"line"` // 0-based index of the new line
	Old    string `json:"old,omitempty" yaml:"old,omitempty"`
	New    string `json:"new" yaml:"new"`
}

// Document is a parsed registry file.
type Document struct {
	Lines  []Line
	marker string
	entry  *regexp.Regexp
}

// Parse splits content into lines, keeping terminators, and recognizes
// entry lines for marker (DefaultMarker if empty).
func Parse(content []byte, marker string) *Document {
	if marker == "" {
		marker = DefaultMarker
	}
	d := &Document{
		marker: marker,
		entry:  entryPattern(marker),
	}

	rest := string(content)
	for rest != "" {
		i := strings.IndexByte(rest, '\n')
		var raw string
		if i < 0 {
			raw, rest = rest, ""
		} else {
			raw, rest = rest[:i+1], rest[i+1:]
		}
		d.Lines = append(d.Lines, d.parseLine(raw))
	}
	return d
}

func entryPattern(marker string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*` + regexp.QuoteMeta(marker) + `\(\s*"([^"]*)"\s*,\s*"([^"]*)"\s*\)`)
}

func (d *Document) parseLine(raw string) Line {
	m := d.entry.FindStringSubmatch(raw)
	if m == nil {
		return Line{Raw: raw}
	}
	return Line{Raw: raw, Entry: &Entry{Version: m[1], Hash: m[2]}}
}

// Marker returns the marker token the document was parsed with.
func (d *Document) Marker() string {
	return d.marker
}

// FormatEntry renders a newline-terminated entry line.
func FormatEntry(marker, version, hash string) string {
	return EntryIndent + marker + `("` + version + `", "` + hash + `")` + "\n"
}

// Upsert registers version with hash.
//
// One pass over the lines records the first line containing the marker and
// stops at the first line that already registers version. If such a line
// exists it is replaced; otherwise the new entry is inserted directly
// above the first marker line, so newer versions come first. With no
// marker line at all the document is left untouched and ErrRegistryFormat
// is returned.
func (d *Document) Upsert(version, hash string) (Change, error) {
	if version == "" || strings.ContainsAny(version, "\"\n") {
		return Change{}, fmt.Errorf("invalid version %q", version)
	}
	if hash == "" || strings.ContainsAny(hash, "\"\n") {
		return Change{}, fmt.Errorf("invalid hash %q", hash)
	}

	exact := d.marker + `("` + version + `"`
	firstPos, matchPos := -1, -1
	for i, l := range d.Lines {
		if firstPos < 0 && strings.Contains(l.Raw, d.marker) {
			firstPos = i
		}
		if strings.Contains(l.Raw, exact) {
			matchPos = i
			break
		}
	}

	formatted := FormatEntry(d.marker, version, hash)
	newLine := Line{Raw: formatted, Entry: &Entry{Version: version, Hash: hash}}

	switch {
	case matchPos >= 0:
		old := d.Lines[matchPos].Raw
		d.Lines[matchPos] = newLine
		return Change{Action: ActionReplaced, Index: matchPos, Old: old, New: formatted}, nil
	case firstPos >= 0:
		d.Lines = append(d.Lines, Line{})
		copy(d.Lines[firstPos+1:], d.Lines[firstPos:])
		d.Lines[firstPos] = newLine
		return Change{Action: ActionInserted, Index: firstPos, New: formatted}, nil
	default:
		return Change{}, fmt.Errorf("%w %q", ErrRegistryFormat, d.marker)
	}
}

// Entries returns the registered entries in file order.
func (d *Document) Entries() []Entry {
	var entries []Entry
	for _, l := range d.Lines {
		if l.Entry != nil {
			entries = append(entries, *l.Entry)
		}
	}
	return entries
}

// Lookup returns the entry registered for version.
func (d *Document) Lookup(version string) (Entry, bool) {
	for _, l := range d.Lines {
		if l.Entry != nil && l.Entry.Version == version {
			return *l.Entry, true
		}
	}
	return Entry{}, false
}

// Bytes re-serializes the document.
func (d *Document) Bytes() []byte {
	var sb strings.Builder
	for _, l := range d.Lines {
		sb.WriteString(l.Raw)
	}
	return []byte(sb.String())
}
