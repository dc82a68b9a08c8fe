package version

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadMarker(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "xmake set_version with options",
			content: "set_project(\"hku_utils\")\nset_version(\"2.3.4\", {build = \"%Y%m%d%H%M\"})\n",
			want:    "2.3.4",
		},
		{
			name:    "first marker wins",
			content: "set_version(\"1.0.0\")\nset_version(\"9.9.9\")\n",
			want:    "1.0.0",
		},
		{
			name:    "indented marker",
			content: "  set_version(\"0.1.0-rc1\")",
			want:    "0.1.0-rc1",
		},
		{
			name:    "token taken verbatim",
			content: "set_version(\" not semver \")\n",
			want:    " not semver ",
		},
		{
			name:    "no marker",
			content: "set_project(\"hku_utils\")\n",
			wantErr: true,
		},
		{
			name:    "marker without quotes",
			content: "set_version(VERSION)\n",
			wantErr: true,
		},
		{
			name:    "empty token",
			content: "set_version(\"\")\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "xmake.lua", tt.content)
			got, err := ReadMarker(path, DefaultMarker)
			if tt.wantErr {
				if !errors.Is(err, ErrConfigParse) {
					t.Fatalf("ReadMarker() error = %v, want ErrConfigParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadMarker() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadMarker() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadMarker_MissingFile(t *testing.T) {
	_, err := ReadMarker(filepath.Join(t.TempDir(), "missing.lua"), DefaultMarker)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, ErrConfigParse) {
		t.Error("missing file should surface the filesystem error, not ErrConfigParse")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestReadBazelModule(t *testing.T) {
	path := writeFile(t, "MODULE.bazel", `module(
    name = "hku_utils",
    version = "1.4.0",
)

bazel_dep(name = "rules_cc", version = "0.2.16")
`)

	got, err := ReadBazelModule(path)
	if err != nil {
		t.Fatalf("ReadBazelModule() error = %v", err)
	}
	if got != "1.4.0" {
		t.Errorf("ReadBazelModule() = %q, want %q", got, "1.4.0")
	}
}

func TestReadBazelModule_NoVersion(t *testing.T) {
	path := writeFile(t, "MODULE.bazel", "module(name = \"x\")\n")

	_, err := ReadBazelModule(path)
	if !errors.Is(err, ErrConfigParse) {
		t.Fatalf("ReadBazelModule() error = %v, want ErrConfigParse", err)
	}
}

func TestRead_Dispatch(t *testing.T) {
	xmake := writeFile(t, "xmake.lua", "set_version(\"3.0.0\")\n")
	custom := writeFile(t, "version.cfg", "VERSION = \"5.6.7\"\n")

	got, err := Read(xmake, Options{})
	if err != nil || got != "3.0.0" {
		t.Errorf("Read(default) = %q, %v", got, err)
	}

	got, err = Read(custom, Options{Format: FormatMarker, Marker: "VERSION ="})
	if err != nil || got != "5.6.7" {
		t.Errorf("Read(custom marker) = %q, %v", got, err)
	}

	if _, err := Read(xmake, Options{Format: "cmake"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  Source
	}{
		{"xmake", []string{"xmake.lua"}, Source{"xmake.lua", FormatMarker}},
		{"bazel", []string{"MODULE.bazel"}, Source{"MODULE.bazel", FormatBazelModule}},
		{"both prefers xmake", []string{"MODULE.bazel", "xmake.lua"}, Source{"xmake.lua", FormatMarker}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := Detect(dir)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetect_None(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "xmake.lua"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Detect(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Detect() error = %v, want os.ErrNotExist", err)
	}
}
